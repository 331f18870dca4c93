package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/hours"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rbl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempFile(t, `
log_level: debug
gateway:
  url: https://localhost:5001/v1/api
  account: U1234567
  insecure_tls: false
pricing:
  formula: speed-vs-greed
  divisor: 10
  default_tick: 0.05
resolver:
  redirects:
    XTKS: [XFRA]
orders:
  extras: liquidate
  illiquid_mics: [OTCM]
cache:
  wait: 45m
ticker_redirects:
  stocks:
    GOOG: GOOGL
`)
	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "U1234567", cfg.Gateway.Account)
	assert.False(t, cfg.InsecureTLS())
	assert.Equal(t, map[string][]string{"XTKS": {"XFRA"}}, cfg.Resolver.Redirects)
	assert.Equal(t, 45*time.Minute, cfg.Cache.Wait)
	assert.True(t, cfg.GateEnabled())
	assert.Equal(t, map[string]string{"GOOG": "GOOGL"}, cfg.Tickers.Stocks)
	assert.Equal(t, rebalance.LiquidateExtras, cfg.ExtraPolicy())
	assert.Equal(t, []string{"OTCM"}, cfg.Stale().IlliquidMICs)

	p, err := cfg.Pricer()
	require.NoError(t, err)
	assert.Equal(t, rebalance.SpeedVsGreed, p.Formula)
	assert.Equal(t, "10", p.Divisor.String())
	assert.Equal(t, "0.05", p.Tick.String())
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("RBL_TEST_ACCOUNT", "DU999")
	path := writeTempFile(t, `
gateway:
  account: ${RBL_TEST_ACCOUNT}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DU999", cfg.Gateway.Account)
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadAndValidate("")
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.InsecureTLS())
	assert.Equal(t, filepath.Join(DefaultOutputDir, "journal.db"), cfg.Paths.Journal)
	assert.Equal(t, DefaultRedirects(), cfg.Resolver.Redirects)
	assert.Equal(t, rebalance.DefaultCacheWait, cfg.Cache.Wait)
	assert.Equal(t, rebalance.ReportExtras, cfg.ExtraPolicy())
	assert.Equal(t, hours.Ask, cfg.UnknownPolicy())

	p, err := cfg.Pricer()
	require.NoError(t, err)
	assert.Equal(t, rebalance.Patience, p.Formula)
	assert.Equal(t, "50", p.Patience.String())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"relative url", func(c *Config) { c.Gateway.URL = "localhost:5000" }},
		{"bad currency", func(c *Config) { c.Gateway.BaseCurrency = "DOLLAR" }},
		{"unknown formula", func(c *Config) { c.Pricing.Formula = "greedy" }},
		{"patience out of range", func(c *Config) { c.Pricing.Patience = 150 }},
		{"divisor below one", func(c *Config) { c.Pricing.Formula, c.Pricing.Divisor = "speed-vs-greed", 0.5 }},
		{"similarity above one", func(c *Config) { c.Resolver.Similarity = 1.5 }},
		{"bad redirect mic", func(c *Config) { c.Resolver.Redirects = map[string][]string{"TOKYO": {"XFRA"}} }},
		{"empty redirect", func(c *Config) { c.Resolver.Redirects = map[string][]string{"XTKS": nil} }},
		{"unknown extras", func(c *Config) { c.Orders.Extras = "sell" }},
		{"unknown exchange policy", func(c *Config) { c.UnknownExchanges = "maybe" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("RBL_TEST_KEY=from-file\n"), 0o600))
	t.Setenv("RBL_TEST_KEY", "")
	os.Unsetenv("RBL_TEST_KEY")

	require.NoError(t, LoadEnv(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("RBL_TEST_KEY"))
}
