package config

import (
	"time"

	"github.com/etnz/rebalance/sheet"
)

// Config is the whole configuration file.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Gateway  GatewayConfig   `yaml:"gateway"`
	Paths    PathsConfig     `yaml:"paths"`
	Pricing  PricingConfig   `yaml:"pricing"`
	Resolver ResolverConfig  `yaml:"resolver"`
	Orders   OrdersConfig    `yaml:"orders"`
	Cache    CacheConfig     `yaml:"cache"`
	Tickers  sheet.Redirects `yaml:"ticker_redirects"`

	// UnknownExchanges is ask, open or closed.
	UnknownExchanges string `yaml:"unknown_exchanges"`
}

// GatewayConfig locates the Client Portal Gateway.
type GatewayConfig struct {
	URL           string        `yaml:"url"`
	Account       string        `yaml:"account"`
	BaseCurrency  string        `yaml:"base_currency"`
	Insecure      *bool         `yaml:"insecure_tls"`
	RateLimit     float64       `yaml:"rate_limit"`
	MaxRetries    uint64        `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	KeepAlive     time.Duration `yaml:"keep_alive"`
	SnapshotPolls int           `yaml:"snapshot_polls"`
	SnapshotDelay time.Duration `yaml:"snapshot_delay"`
}

// PathsConfig holds the working directories.
type PathsConfig struct {
	Assets  string `yaml:"assets"`
	Output  string `yaml:"output"`
	Journal string `yaml:"journal"`
	Cache   string `yaml:"cache"`
}

// PricingConfig selects the limit price formula.
type PricingConfig struct {
	Formula  string  `yaml:"formula"`
	Patience float64 `yaml:"patience"`
	Divisor  float64 `yaml:"divisor"`
	Tick     float64 `yaml:"default_tick"`
}

// ResolverConfig tunes the contract resolution cascade.
type ResolverConfig struct {
	Similarity  float64             `yaml:"similarity"`
	Parallelism int                 `yaml:"parallelism"`
	Redirects   map[string][]string `yaml:"redirects"`
	LLM         LLMConfig           `yaml:"llm"`
}

// LLMConfig enables the last resort name suggester.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// OrdersConfig tunes reconciliation and confirmation.
type OrdersConfig struct {
	// AutoConfirmLimit is the order amount, in account currency, above which
	// auto-confirmation is overridden.
	AutoConfirmLimit  float64  `yaml:"auto_confirm_limit"`
	StaleTolerance    float64  `yaml:"stale_tolerance"`
	IlliquidTolerance float64  `yaml:"illiquid_tolerance"`
	IlliquidMICs      []string `yaml:"illiquid_mics"`
	Extras            string   `yaml:"extras"`
	Tolerance         float64  `yaml:"tolerance"`
}

// CacheConfig is the positions cache gate.
type CacheConfig struct {
	Enabled *bool         `yaml:"enabled"`
	Wait    time.Duration `yaml:"wait"`
}

// InsecureTLS reports whether the gateway certificate is not verified.
func (c *Config) InsecureTLS() bool { return c.Gateway.Insecure == nil || *c.Gateway.Insecure }

// GateEnabled reports whether ordering waits for the positions cache.
func (c *Config) GateEnabled() bool { return c.Cache.Enabled == nil || *c.Cache.Enabled }
