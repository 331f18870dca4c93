// Package clientportal talks to an Interactive Brokers Client Portal Gateway
// over its REST API. A Client implements every broker collaborator the
// rebalancer needs.
package clientportal

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is where a locally launched gateway listens.
const DefaultBaseURL = "https://localhost:5000/v1/api"

// Client is a Client Portal Gateway client.
type Client struct {
	baseURL    string
	account    string
	currency   string // account base currency
	httpClient *http.Client
	lookups    *http.Client // GET lookups go through the daily disk cache
	cacheDir   string
	limiter    *rate.Limiter
	log        zerolog.Logger

	maxRetries   uint64
	retryBackoff time.Duration
	pollInterval time.Duration
	snapshotPoll int

	mu    sync.Mutex
	rates map[string]decimal.Decimal
	ticks map[rebalance.InstrumentID]rebalance.TickTable
}

// Option configures a Client.
type Option func(*Client)

// New returns a client for the gateway at baseURL. The gateway serves a
// self-signed certificate, so TLS verification is off unless WithHTTPClient
// says otherwise.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: "USD",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // local gateway certificate
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(10), 5),
		log:          zerolog.Nop(),
		maxRetries:   3,
		retryBackoff: 500 * time.Millisecond,
		pollInterval: 500 * time.Millisecond,
		snapshotPoll: 5,
		rates:        map[string]decimal.Decimal{},
		ticks:        map[rebalance.InstrumentID]rebalance.TickTable{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lookups = c.httpClient
	if c.cacheDir != "" {
		c.lookups = &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: &diskCache{base: transport(c.httpClient), dir: c.cacheDir, log: c.log},
		}
	}
	return c
}

// WithAccount selects the brokerage account. Without it the gateway's
// selected account is used.
func WithAccount(id string) Option {
	return func(c *Client) { c.account = id }
}

// WithBaseCurrency sets the account currency targets are expressed in.
func WithBaseCurrency(cur string) Option {
	return func(c *Client) { c.currency = strings.ToUpper(cur) }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCacheDir caches contract lookups on disk in dir for the day.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// WithRateLimit caps the request rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRetries sets how many times reads are retried and the first pause.
func WithRetries(max uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithSnapshotPolling sets how often and how long market data snapshots are polled.
func WithSnapshotPolling(polls int, interval time.Duration) Option {
	return func(c *Client) {
		c.snapshotPoll = polls
		c.pollInterval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger.With().Str("component", "clientportal").Logger() }
}

func transport(hc *http.Client) http.RoundTripper {
	if hc.Transport != nil {
		return hc.Transport
	}
	return http.DefaultTransport
}

// Account returns the account orders go to, asking the gateway the first time.
func (c *Client) Account(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.account
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	var resp struct {
		Accounts        []string `json:"accounts"`
		SelectedAccount string   `json:"selectedAccount"`
	}
	if err := c.get(ctx, "/iserver/accounts", nil, &resp); err != nil {
		return "", fmt.Errorf("listing accounts: %w", err)
	}
	id = resp.SelectedAccount
	if id == "" && len(resp.Accounts) > 0 {
		id = resp.Accounts[0]
	}
	if id == "" {
		return "", fmt.Errorf("gateway reports no brokerage account")
	}
	c.mu.Lock()
	c.account = id
	c.mu.Unlock()
	return id, nil
}

var _ rebalance.Broker = (*Client)(nil)
var _ rebalance.TickSource = (*Client)(nil)
