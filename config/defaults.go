package config

import (
	"path/filepath"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/clientportal"
)

// Default values for optional configuration fields.
const (
	DefaultLogLevel         = "info"
	DefaultBaseCurrency     = "USD"
	DefaultRateLimit        = 10
	DefaultMaxRetries       = 3
	DefaultRetryBackoff     = 500 * time.Millisecond
	DefaultKeepAlive        = 55 * time.Second
	DefaultSnapshotPolls    = 5
	DefaultSnapshotDelay    = 2 * time.Second
	DefaultAssetsDir        = "assets"
	DefaultOutputDir        = "output"
	DefaultFormula          = "patience"
	DefaultPatience         = 50
	DefaultParallelism      = 8
	DefaultLLMModel         = "gemini-2.5-flash"
	DefaultAutoConfirmLimit = 10000
	DefaultExtras           = "report"
	DefaultUnknownExchanges = "ask"
)

// DefaultRedirects trade Tokyo and Hong Kong listings on Frankfurt or OTC.
func DefaultRedirects() map[string][]string {
	return map[string][]string{
		"XTKS": {"XFRA", "OTCM"},
		"XHKG": {"XFRA", "OTCM"},
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	// Gateway defaults
	if c.Gateway.URL == "" {
		c.Gateway.URL = clientportal.DefaultBaseURL
	}
	if c.Gateway.BaseCurrency == "" {
		c.Gateway.BaseCurrency = DefaultBaseCurrency
	}
	if c.Gateway.RateLimit == 0 {
		c.Gateway.RateLimit = DefaultRateLimit
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = DefaultMaxRetries
	}
	if c.Gateway.RetryBackoff == 0 {
		c.Gateway.RetryBackoff = DefaultRetryBackoff
	}
	if c.Gateway.KeepAlive == 0 {
		c.Gateway.KeepAlive = DefaultKeepAlive
	}
	if c.Gateway.SnapshotPolls == 0 {
		c.Gateway.SnapshotPolls = DefaultSnapshotPolls
	}
	if c.Gateway.SnapshotDelay == 0 {
		c.Gateway.SnapshotDelay = DefaultSnapshotDelay
	}

	// Paths defaults
	if c.Paths.Assets == "" {
		c.Paths.Assets = DefaultAssetsDir
	}
	if c.Paths.Output == "" {
		c.Paths.Output = DefaultOutputDir
	}
	if c.Paths.Journal == "" {
		c.Paths.Journal = filepath.Join(c.Paths.Output, "journal.db")
	}
	if c.Paths.Cache == "" {
		c.Paths.Cache = filepath.Join(c.Paths.Output, "cache")
	}

	// Pricing defaults
	if c.Pricing.Formula == "" {
		c.Pricing.Formula = DefaultFormula
	}
	if c.Pricing.Patience == 0 {
		c.Pricing.Patience = DefaultPatience
	}
	if c.Pricing.Divisor == 0 {
		c.Pricing.Divisor = rebalance.DefaultDivisor.InexactFloat64()
	}
	if c.Pricing.Tick == 0 {
		c.Pricing.Tick = rebalance.DefaultTick.InexactFloat64()
	}

	// Resolver defaults
	if c.Resolver.Similarity == 0 {
		c.Resolver.Similarity = rebalance.DefaultSimilarity
	}
	if c.Resolver.Parallelism == 0 {
		c.Resolver.Parallelism = DefaultParallelism
	}
	if c.Resolver.Redirects == nil {
		c.Resolver.Redirects = DefaultRedirects()
	}
	if c.Resolver.LLM.Model == "" {
		c.Resolver.LLM.Model = DefaultLLMModel
	}

	// Orders defaults
	if c.Orders.AutoConfirmLimit == 0 {
		c.Orders.AutoConfirmLimit = DefaultAutoConfirmLimit
	}
	if c.Orders.StaleTolerance == 0 {
		c.Orders.StaleTolerance = rebalance.DefaultStaleOptions.Tolerance.InexactFloat64()
	}
	if c.Orders.IlliquidTolerance == 0 {
		c.Orders.IlliquidTolerance = rebalance.DefaultStaleOptions.IlliquidTolerance.InexactFloat64()
	}
	if c.Orders.IlliquidMICs == nil {
		c.Orders.IlliquidMICs = rebalance.DefaultStaleOptions.IlliquidMICs
	}
	if c.Orders.Extras == "" {
		c.Orders.Extras = DefaultExtras
	}

	// Cache gate defaults
	if c.Cache.Wait == 0 {
		c.Cache.Wait = rebalance.DefaultCacheWait
	}

	if c.UnknownExchanges == "" {
		c.UnknownExchanges = DefaultUnknownExchanges
	}
}

// Default returns a configuration made of defaults only.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}
