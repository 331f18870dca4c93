// Package journal keeps a local SQLite record of order submissions and of
// positions cache invalidations.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS gate (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	invalidated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
	client_id     TEXT PRIMARY KEY,
	instrument_id TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	mic           TEXT NOT NULL,
	side          TEXT NOT NULL,
	quantity      TEXT NOT NULL,
	limit_price   TEXT NOT NULL,
	status        TEXT NOT NULL,
	order_id      TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
`

// Journal is the local database.
type Journal struct {
	conn *sql.DB
	path string
	now  func() time.Time
	log  zerolog.Logger
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string, logger zerolog.Logger) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{
		conn: conn,
		path: path,
		now:  time.Now,
		log:  logger.With().Str("component", "journal").Logger(),
	}, nil
}

// Close closes the database connection
func (j *Journal) Close() error { return j.conn.Close() }

// LastInvalidation returns the time of the last positions cache invalidation.
func (j *Journal) LastInvalidation(ctx context.Context) (time.Time, bool, error) {
	var at string
	err := j.conn.QueryRowContext(ctx, `SELECT invalidated_at FROM gate WHERE id = 1`).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading cache gate: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cache gate timestamp %q: %w", at, err)
	}
	return t, true, nil
}

// RecordInvalidation stores at as the last invalidation.
func (j *Journal) RecordInvalidation(ctx context.Context, at time.Time) error {
	_, err := j.conn.ExecContext(ctx,
		`INSERT INTO gate (id, invalidated_at) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET invalidated_at = excluded.invalidated_at`,
		at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording cache invalidation: %w", err)
	}
	return nil
}

var _ rebalance.GateStore = (*Journal)(nil)
