package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// Submission status values.
const (
	Pending  = "pending"
	Placed   = "placed"
	Rejected = "rejected"
	Failed   = "failed"
)

// ErrDuplicate is returned when a client order id was already submitted.
var ErrDuplicate = errors.New("order already submitted")

// Submission is one journaled order.
type Submission struct {
	ClientID string
	Ticket   rebalance.OrderTicket
	Status   string
	OrderID  string
	Error    string
	Created  time.Time
}

// Recorder journals every order before handing it to the broker. A client id
// seen before is refused without reaching the broker, even across processes
// sharing the journal.
type Recorder struct {
	Journal *Journal
	Next    rebalance.OrderSubmitter
}

// SubmitOrder implements rebalance.OrderSubmitter.
func (r *Recorder) SubmitOrder(ctx context.Context, t rebalance.OrderTicket) (string, error) {
	j := r.Journal
	now := j.now().UTC().Format(time.RFC3339Nano)
	res, err := j.conn.ExecContext(ctx,
		`INSERT INTO submissions (client_id, instrument_id, symbol, mic, side, quantity, limit_price, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_id) DO NOTHING`,
		t.ClientID, string(t.ID), t.Symbol, t.MIC, t.Side.String(), t.Quantity.String(), t.Limit.String(), Pending, now, now)
	if err != nil {
		return "", fmt.Errorf("journaling order %s: %w", t.ClientID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, t.ClientID)
	}

	id, serr := r.Next.SubmitOrder(ctx, t)
	status := Placed
	var rejected *rebalance.RejectedError
	switch {
	case errors.As(serr, &rejected):
		status = Rejected
	case serr != nil:
		status = Failed
	}
	msg := ""
	if serr != nil {
		msg = serr.Error()
	}
	if _, err := j.conn.ExecContext(context.WithoutCancel(ctx),
		`UPDATE submissions SET status = ?, order_id = ?, error = ?, updated_at = ? WHERE client_id = ?`,
		status, id, msg, j.now().UTC().Format(time.RFC3339Nano), t.ClientID); err != nil {
		j.log.Error().Err(err).Str("client_id", t.ClientID).Msg("order outcome not journaled")
	}
	return id, serr
}

// Submissions returns the journaled orders, oldest first.
func (j *Journal) Submissions(ctx context.Context) ([]Submission, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT client_id, instrument_id, symbol, mic, side, quantity, limit_price, status, order_id, error, created_at
		 FROM submissions ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			s                           Submission
			id, side, qty, limit, ctime string
		)
		if err := rows.Scan(&s.ClientID, &id, &s.Ticket.Symbol, &s.Ticket.MIC, &side, &qty, &limit, &s.Status, &s.OrderID, &s.Error, &ctime); err != nil {
			return nil, fmt.Errorf("reading submission: %w", err)
		}
		s.Ticket.ClientID = s.ClientID
		s.Ticket.ID = rebalance.InstrumentID(id)
		if s.Ticket.Side, err = rebalance.ParseSide(side); err != nil {
			return nil, fmt.Errorf("submission %s: %w", s.ClientID, err)
		}
		if s.Ticket.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("submission %s: %w", s.ClientID, err)
		}
		if s.Ticket.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("submission %s: %w", s.ClientID, err)
		}
		if s.Created, err = time.Parse(time.RFC3339Nano, ctime); err != nil {
			return nil, fmt.Errorf("submission %s: %w", s.ClientID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
