package rebalance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// GateStore persists the time of the last positions cache invalidation.
type GateStore interface {
	// LastInvalidation returns false when no invalidation was ever recorded.
	LastInvalidation(ctx context.Context) (time.Time, bool, error)
	RecordInvalidation(ctx context.Context, at time.Time) error
}

// DefaultCacheWait is how long the broker needs to rebuild its positions cache.
const DefaultCacheWait = 30 * time.Minute

// CacheGate refuses to order against a positions cache invalidated too recently.
//
// Checking the cache age and ordering happen under one lock: a session holds
// the gate from Acquire to Release, so no other session can invalidate the
// cache in between.
type CacheGate struct {
	Store       GateStore
	Invalidator CacheInvalidator
	Wait        time.Duration
	Now         func() time.Time

	mu  sync.Mutex
	log zerolog.Logger
}

// NewCacheGate returns a gate waiting wait after each invalidation.
func NewCacheGate(store GateStore, inv CacheInvalidator, wait time.Duration, logger zerolog.Logger) *CacheGate {
	return &CacheGate{
		Store:       store,
		Invalidator: inv,
		Wait:        wait,
		Now:         time.Now,
		log:         logger.With().Str("component", "gate").Logger(),
	}
}

// Remaining returns how long until the cache is ready, zero if it is.
func (g *CacheGate) Remaining(ctx context.Context) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining(ctx)
}

func (g *CacheGate) remaining(ctx context.Context) (time.Duration, error) {
	last, ok, err := g.Store.LastInvalidation(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return g.Wait, fmt.Errorf("%w: the cache was never prepared, run cache-ready first", ErrCacheNotReady)
	}
	if left := g.Wait - g.Now().Sub(last); left > 0 {
		return left, nil
	}
	return 0, nil
}

// Acquire checks the cache age and, when ready, returns a session holding
// the gate. The caller must Release it.
func (g *CacheGate) Acquire(ctx context.Context) (*GateSession, error) {
	g.mu.Lock()
	left, err := g.remaining(ctx)
	if err == nil && left > 0 {
		err = fmt.Errorf("%w: wait %s more", ErrCacheNotReady, left.Round(time.Minute))
	}
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	return &GateSession{gate: g}, nil
}

// Reset invalidates the cache now and records it.
func (g *CacheGate) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.invalidate(ctx)
}

func (g *CacheGate) invalidate(ctx context.Context) error {
	err := g.Invalidator.InvalidatePositions(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("cache invalidation failed, recording it anyway")
	}
	// the cache is considered stale even when the broker call failed.
	if rerr := g.Store.RecordInvalidation(ctx, g.Now()); rerr != nil {
		return fmt.Errorf("recording invalidation: %w", rerr)
	}
	g.log.Info().Msg("positions cache invalidated")
	return err
}

// GateSession is a run holding the gate.
type GateSession struct {
	gate  *CacheGate
	dirty atomic.Bool
	once  sync.Once
	err   error
}

// MarkDirty records that the run changed broker state.
func (s *GateSession) MarkDirty() { s.dirty.Store(true) }

// Release invalidates the cache once if the session is dirty, then frees the
// gate. Later calls return the first result.
func (s *GateSession) Release(ctx context.Context) error {
	s.once.Do(func() {
		defer s.gate.mu.Unlock()
		if s.dirty.Load() {
			s.err = s.gate.invalidate(context.WithoutCancel(ctx))
		}
	})
	return s.err
}
