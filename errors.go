package rebalance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnpriceable means no usable quote data exists to compute a limit price.
	ErrUnpriceable = errors.New("unpriceable")
	// ErrUnavailable marks a transient failure of a broker or market data collaborator.
	ErrUnavailable = errors.New("collaborator unavailable")
	// ErrCacheNotReady means the broker positions cache may still be stale.
	ErrCacheNotReady = errors.New("positions cache not ready")
)

// Reason a resolver step failed.
type Reason int

const (
	NotFound Reason = iota + 1
	Ambiguous
	NameMismatch
	Unavailable
)

func (r Reason) String() string {
	switch r {
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous"
	case NameMismatch:
		return "name mismatch"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// StepFailure records why one resolver step did not produce a unique match.
type StepFailure struct {
	Step       string
	Reason     Reason
	Candidates int   // number of candidates for Ambiguous
	Err        error // underlying error, if any
}

func (f StepFailure) String() string {
	switch {
	case f.Reason == Ambiguous:
		return fmt.Sprintf("%s: ambiguous (%d candidates)", f.Step, f.Candidates)
	case f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Step, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Step, f.Reason)
}

// UnresolvedError is returned for a row the resolver could not map to a unique instrument.
type UnresolvedError struct {
	Row   PortfolioRow
	Steps []StepFailure
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		parts = append(parts, s.String())
	}
	return fmt.Sprintf("unresolved %s: %s", e.Row, strings.Join(parts, "; "))
}

// Reason returns the reason of the last step, the most specific one.
func (e *UnresolvedError) Reason() Reason {
	if len(e.Steps) == 0 {
		return NotFound
	}
	return e.Steps[len(e.Steps)-1].Reason
}

// MismatchError is returned by a name search whose candidates are all too far from the wanted name.
type MismatchError struct {
	Want  string
	Best  string
	Score float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("best match %q for %q scores %.2f", e.Best, e.Want, e.Score)
}

// DropError records an instrument dropped from a stage of the pipeline.
type DropError struct {
	Stage   string
	Subject string
	Err     error
}

func (e *DropError) Error() string { return fmt.Sprintf("%s: %s dropped: %v", e.Stage, e.Subject, e.Err) }
func (e *DropError) Unwrap() error { return e.Err }

// RejectedError is returned when the broker refuses an order.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "order rejected: " + e.Reason }
