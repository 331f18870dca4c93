package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/hours"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	u, err := url.Parse(c.Gateway.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway.url %q is not an absolute URL", c.Gateway.URL)
	}
	if len(c.Gateway.BaseCurrency) != 3 {
		return fmt.Errorf("gateway.base_currency must be an ISO currency code, got %q", c.Gateway.BaseCurrency)
	}
	if c.Gateway.RateLimit <= 0 {
		return errors.New("gateway.rate_limit must be > 0")
	}
	if c.Gateway.SnapshotPolls < 1 {
		return errors.New("gateway.snapshot_polls must be >= 1")
	}

	if _, err := c.Pricer(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if c.Pricing.Tick <= 0 {
		return errors.New("pricing.default_tick must be > 0")
	}

	if c.Resolver.Similarity <= 0 || c.Resolver.Similarity > 1 {
		return fmt.Errorf("resolver.similarity must be in (0, 1], got %v", c.Resolver.Similarity)
	}
	if c.Resolver.Parallelism < 1 {
		return errors.New("resolver.parallelism must be >= 1")
	}
	for from, to := range c.Resolver.Redirects {
		if err := rebalance.ValidateMIC(from); err != nil {
			return fmt.Errorf("resolver.redirects: %w", err)
		}
		if len(to) == 0 {
			return fmt.Errorf("resolver.redirects.%s is empty", from)
		}
		for _, m := range to {
			if err := rebalance.ValidateMIC(m); err != nil {
				return fmt.Errorf("resolver.redirects.%s: %w", from, err)
			}
		}
	}

	if c.Orders.AutoConfirmLimit < 0 {
		return errors.New("orders.auto_confirm_limit must be >= 0")
	}
	if c.Orders.StaleTolerance < 0 || c.Orders.IlliquidTolerance < 0 {
		return errors.New("orders stale tolerances must be >= 0")
	}
	if c.Orders.Tolerance < 0 {
		return errors.New("orders.tolerance must be >= 0")
	}
	if _, err := rebalance.ParseExtraPolicy(c.Orders.Extras); err != nil {
		return fmt.Errorf("orders.extras: %w", err)
	}

	if c.Cache.Wait < 0 {
		return errors.New("cache.wait must be >= 0")
	}
	if _, err := hours.ParsePolicy(c.UnknownExchanges); err != nil {
		return fmt.Errorf("unknown_exchanges: %w", err)
	}
	return nil
}

// Pricer returns the configured limit price formula.
func (c *Config) Pricer() (rebalance.Pricer, error) {
	f, err := rebalance.ParseFormula(strings.ToLower(c.Pricing.Formula))
	if err != nil {
		return rebalance.Pricer{}, err
	}
	p := rebalance.Pricer{
		Formula:  f,
		Patience: decimal.NewFromFloat(c.Pricing.Patience),
		Divisor:  decimal.NewFromFloat(c.Pricing.Divisor),
		Tick:     decimal.NewFromFloat(c.Pricing.Tick),
	}
	return p, p.Validate()
}

// Stale returns the stale working order tolerances.
func (c *Config) Stale() rebalance.StaleOptions {
	return rebalance.StaleOptions{
		Tolerance:         decimal.NewFromFloat(c.Orders.StaleTolerance),
		IlliquidTolerance: decimal.NewFromFloat(c.Orders.IlliquidTolerance),
		IlliquidMICs:      c.Orders.IlliquidMICs,
	}
}

// ExtraPolicy returns what to do with positions absent from the targets.
func (c *Config) ExtraPolicy() rebalance.ExtraPolicy {
	p, _ := rebalance.ParseExtraPolicy(c.Orders.Extras)
	return p
}

// UnknownPolicy returns the policy for exchanges missing from the hours table.
func (c *Config) UnknownPolicy() hours.Policy {
	p, _ := hours.ParsePolicy(c.UnknownExchanges)
	return p
}
