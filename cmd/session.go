package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/clientportal"
	"github.com/etnz/rebalance/config"
	"github.com/etnz/rebalance/hours"
	"github.com/etnz/rebalance/journal"
	"github.com/rs/zerolog"
)

// session gathers the collaborators of one subcommand run.
type session struct {
	cfg      *config.Config
	log      zerolog.Logger
	term     *terminal
	client   *clientportal.Client
	calendar *hours.Calendar

	journal *journal.Journal
	stop    context.CancelFunc
}

// newSession loads the configuration and builds the broker client and the
// exchange calendar. Nothing is contacted yet.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)
	term := newTerminal(bufio.NewReader(os.Stdin), os.Stdout)
	term.currency = cfg.Gateway.BaseCurrency

	opts := []clientportal.Option{
		clientportal.WithAccount(cfg.Gateway.Account),
		clientportal.WithBaseCurrency(cfg.Gateway.BaseCurrency),
		clientportal.WithCacheDir(cfg.Paths.Cache),
		clientportal.WithRateLimit(cfg.Gateway.RateLimit, max(1, int(cfg.Gateway.RateLimit))),
		clientportal.WithRetries(cfg.Gateway.MaxRetries, cfg.Gateway.RetryBackoff),
		clientportal.WithSnapshotPolling(cfg.Gateway.SnapshotPolls, cfg.Gateway.SnapshotDelay),
		clientportal.WithLogger(logger),
	}
	if !cfg.InsecureTLS() {
		opts = append(opts, clientportal.WithHTTPClient(&http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
		}))
	}

	return &session{
		cfg:      cfg,
		log:      logger,
		term:     term,
		client:   clientportal.New(cfg.Gateway.URL, opts...),
		calendar: hours.New(cfg.UnknownPolicy(), term.AskExchange, logger),
	}, nil
}

// connect checks the gateway session and keeps it alive until Close.
func (s *session) connect(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("gateway %s: %w", s.cfg.Gateway.URL, err)
	}
	if s.stop == nil && s.cfg.Gateway.KeepAlive > 0 {
		ctx, stop := context.WithCancel(ctx)
		s.stop = stop
		go s.client.KeepAlive(ctx, s.cfg.Gateway.KeepAlive)
	}
	return nil
}

// openJournal opens the submission journal on first use.
func (s *session) openJournal() (*journal.Journal, error) {
	if s.journal != nil {
		return s.journal, nil
	}
	j, err := journal.Open(s.cfg.Paths.Journal, s.log)
	if err != nil {
		return nil, err
	}
	s.journal = j
	return j, nil
}

// gate returns the positions cache gate backed by the journal.
func (s *session) gate() (*rebalance.CacheGate, error) {
	j, err := s.openJournal()
	if err != nil {
		return nil, err
	}
	return rebalance.NewCacheGate(j, s.client, s.cfg.Cache.Wait, s.log), nil
}

// Close stops the keep alive and closes the journal.
func (s *session) Close() {
	if s.stop != nil {
		s.stop()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing journal")
		}
	}
}
