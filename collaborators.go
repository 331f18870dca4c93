package rebalance

import (
	"context"

	"github.com/shopspring/decimal"
)

// InstrumentLookup searches the broker's contract database.
type InstrumentLookup interface {
	// LookupSymbol returns the listings of symbol, restricted to mic when it is not empty.
	LookupSymbol(ctx context.Context, symbol, mic string) ([]Candidate, error)
	// SearchName runs a full text search on company names.
	SearchName(ctx context.Context, name string) ([]Candidate, error)
	// LookupOption returns the option contracts matching spec.
	LookupOption(ctx context.Context, spec OptionSpec) ([]Candidate, error)
}

// NameSuggester is the last resort of the resolver. A nil candidate means no suggestion.
type NameSuggester interface {
	Suggest(ctx context.Context, row PortfolioRow) (*Candidate, error)
}

// QuoteSource supplies market data.
type QuoteSource interface {
	// Quotes returns snapshots by instrument. Missing instruments have no data.
	Quotes(ctx context.Context, ids []InstrumentID) (map[InstrumentID]QuoteSnapshot, error)
	// ExchangeRate returns how many units of currency buy one unit of the account currency.
	ExchangeRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// TickSource supplies an instrument's price increments when resolution left them empty.
type TickSource interface {
	TickTable(ctx context.Context, id InstrumentID) (TickTable, error)
}

// PositionSource supplies the account's positions and working orders.
type PositionSource interface {
	Holdings(ctx context.Context) ([]Holding, error)
	OpenOrders(ctx context.Context) ([]OpenOrder, error)
}

// OrderTicket is a single order submission.
type OrderTicket struct {
	ClientID string // idempotency key
	ID       InstrumentID
	Symbol   string
	MIC      string
	Side     Side
	Quantity decimal.Decimal
	Limit    decimal.Decimal
}

// OrderSubmitter places orders. A submission is a single request; it is never retried.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, t OrderTicket) (orderID string, err error)
}

// OrderCanceller cancels a working order.
type OrderCanceller interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// CacheInvalidator invalidates and primes the broker's positions cache.
type CacheInvalidator interface {
	InvalidatePositions(ctx context.Context) error
}

// ExchangeCalendar tells whether an exchange is trading now.
type ExchangeCalendar interface {
	IsOpen(mic string) bool
}

// Broker is everything a live broker session offers.
type Broker interface {
	InstrumentLookup
	QuoteSource
	PositionSource
	OrderSubmitter
	OrderCanceller
	CacheInvalidator
}
