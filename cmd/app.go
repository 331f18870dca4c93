// Package cmd implements the rbl subcommands that bring a brokerage account
// in line with a target portfolio.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/etnz/rebalance/config"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&runCmd{}, "rebalance")
	c.Register(&noopCmd{}, "rebalance")
	c.Register(&recalcCmd{}, "rebalance")
	c.Register(&orderCmd{}, "rebalance")
	c.Register(&compareCmd{}, "rebalance")

	c.Register(&cancelAllCmd{}, "orders")
	c.Register(&cacheReadyCmd{}, "orders")
	c.Register(&journalCmd{}, "orders")

	c.Register(&hoursCmd{}, "help")
	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "rbl.yaml", "Path to the YAML configuration file. Defaults apply when the default file is missing.")
var logLevel = flag.String("log-level", "", "Overrides the configured log level (debug, info, warn, error).")
var allExchanges = flag.Bool("all-exchanges", false, "Forward orders whatever the trading hours of their exchange.")

// artifactName is the enriched portfolio written by the pricing stage.
const artifactName = "portfolio.csv"

// loadConfig reads the .env file and the configuration file, applies the
// command line overrides and validates the result.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	path := *configFile
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !isSet("config") {
		path = ""
	}
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", *configFile, err)
	}
	return cfg, nil
}

// isSet reports whether the global flag was given on the command line.
func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// newLogger writes diagnostics to stderr, leaving stdout to the operator dialog.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().Timestamp().Logger()
}

// artifactPath is where the enriched portfolio is saved and loaded.
func artifactPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Output, artifactName)
}
