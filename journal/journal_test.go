package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	j := open(t)

	_, ok, err := j.LastInvalidation(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a fresh journal has no invalidation")

	first := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordInvalidation(ctx, first))
	second := first.Add(90 * time.Second)
	require.NoError(t, j.RecordInvalidation(ctx, second))

	got, ok, err := j.LastInvalidation(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, second.Equal(got), "got %v", got)
}

func TestGateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordInvalidation(ctx, at))
	require.NoError(t, j.Close())

	j, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer j.Close()
	got, ok, err := j.LastInvalidation(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
}

type invalidator struct{ calls int }

func (i *invalidator) InvalidatePositions(ctx context.Context) error {
	i.calls++
	return nil
}

func TestCacheGate(t *testing.T) {
	ctx := context.Background()
	j := open(t)
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	inv := &invalidator{}
	g := rebalance.NewCacheGate(j, inv, 30*time.Minute, zerolog.Nop())
	g.Now = func() time.Time { return now }

	_, err := g.Acquire(ctx)
	require.ErrorIs(t, err, rebalance.ErrCacheNotReady, "never prepared")

	require.NoError(t, g.Reset(ctx))
	assert.Equal(t, 1, inv.calls)
	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, rebalance.ErrCacheNotReady, "just invalidated")

	now = now.Add(31 * time.Minute)
	s, err := g.Acquire(ctx)
	require.NoError(t, err)
	s.MarkDirty()
	require.NoError(t, s.Release(ctx))
	assert.Equal(t, 2, inv.calls)

	last, ok, err := j.LastInvalidation(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, now.Equal(last))
}

type submitter struct {
	calls int
	err   error
}

func (s *submitter) SubmitOrder(ctx context.Context, t rebalance.OrderTicket) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "9" + t.ClientID[len(t.ClientID)-1:], nil
}

func ticket(id string) rebalance.OrderTicket {
	return rebalance.OrderTicket{
		ClientID: id,
		ID:       "265598",
		Symbol:   "AAPL",
		MIC:      "XNAS",
		Side:     rebalance.Buy,
		Quantity: decimal.NewFromInt(10),
		Limit:    decimal.RequireFromString("187.25"),
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	j := open(t)
	next := &submitter{}
	r := &Recorder{Journal: j, Next: next}

	id, err := r.SubmitOrder(ctx, ticket("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "91", id)

	_, err = r.SubmitOrder(ctx, ticket("run-1"))
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, next.calls, "a duplicate never reaches the broker")

	subs, err := j.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	s := subs[0]
	assert.Equal(t, Placed, s.Status)
	assert.Equal(t, "91", s.OrderID)
	assert.Equal(t, rebalance.Buy, s.Ticket.Side)
	assert.True(t, s.Ticket.Limit.Equal(decimal.RequireFromString("187.25")))
	assert.True(t, s.Ticket.Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, rebalance.InstrumentID("265598"), s.Ticket.ID)
}

func TestRecorderOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"rejected", &rebalance.RejectedError{Reason: "invalid tick"}, Rejected},
		{"failed", errors.New("connection reset"), Failed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			j := open(t)
			r := &Recorder{Journal: j, Next: &submitter{err: tc.err}}

			_, err := r.SubmitOrder(ctx, ticket("run-3"))
			require.ErrorIs(t, err, tc.err)

			subs, err := j.Submissions(ctx)
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.Equal(t, tc.status, subs[0].Status)
			assert.Equal(t, tc.err.Error(), subs[0].Error)
		})
	}
}
