// Package hours tells whether an exchange, named by its ISO MIC, is in its
// regular trading session.
package hours

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Policy decides how MICs missing from the table are treated.
type Policy int

const (
	// Ask the operator once per MIC and remember the answer for the run.
	Ask Policy = iota
	// AssumeOpen treats unknown exchanges as open.
	AssumeOpen
	// AssumeClosed treats unknown exchanges as closed.
	AssumeClosed
)

func (p Policy) String() string {
	switch p {
	case AssumeOpen:
		return "open"
	case AssumeClosed:
		return "closed"
	}
	return "ask"
}

// ParsePolicy accepts "ask", "open" and "closed".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ask":
		return Ask, nil
	case "open":
		return AssumeOpen, nil
	case "closed":
		return AssumeClosed, nil
	}
	return 0, fmt.Errorf("unknown exchange policy %q (want ask, open or closed)", s)
}

// AskFunc asks the operator whether an unknown exchange should be considered open.
type AskFunc func(mic string) (bool, error)

// Calendar answers IsOpen for MICs against a schedule table.
type Calendar struct {
	Exchanges map[string]Exchange
	Unknown   Policy
	Ask       AskFunc
	Now       func() time.Time

	mu      sync.Mutex
	answers map[string]bool
	log     zerolog.Logger
}

// New returns a Calendar over the default table.
func New(policy Policy, ask AskFunc, logger zerolog.Logger) *Calendar {
	return &Calendar{
		Exchanges: Default(),
		Unknown:   policy,
		Ask:       ask,
		Now:       time.Now,
		answers:   map[string]bool{},
		log:       logger.With().Str("component", "hours").Logger(),
	}
}

// IsOpen reports whether mic is trading now. An empty MIC cannot be filtered
// and counts as open.
func (c *Calendar) IsOpen(mic string) bool { return c.IsOpenAt(mic, c.Now()) }

// IsOpenAt reports whether mic is trading at t.
func (c *Calendar) IsOpenAt(mic string, t time.Time) bool {
	mic = strings.ToUpper(strings.TrimSpace(mic))
	if mic == "" {
		return true
	}
	if e, ok := c.Exchanges[mic]; ok {
		return e.OpenAt(t)
	}
	return c.unknown(mic)
}

// Known reports whether mic has a schedule.
func (c *Calendar) Known(mic string) bool {
	_, ok := c.Exchanges[strings.ToUpper(strings.TrimSpace(mic))]
	return ok
}

func (c *Calendar) unknown(mic string) bool {
	switch c.Unknown {
	case AssumeOpen:
		return true
	case AssumeClosed:
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if open, ok := c.answers[mic]; ok {
		return open
	}
	if c.Ask == nil {
		c.log.Warn().Str("mic", mic).Msg("unknown exchange and nobody to ask, treating as closed")
		return false
	}
	open, err := c.Ask(mic)
	if err != nil {
		c.log.Warn().Err(err).Str("mic", mic).Msg("no answer for unknown exchange, treating as closed")
		return false
	}
	if c.answers == nil {
		c.answers = map[string]bool{}
	}
	c.answers[mic] = open
	c.log.Info().Str("mic", mic).Bool("open", open).Msg("unknown exchange decided")
	return open
}
