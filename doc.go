// Package rebalance brings a brokerage account in line with a target
// portfolio.
//
// A run goes through ordered stages over a batch of rows:
//   - Resolution: each PortfolioRow is mapped to a unique broker instrument
//     by a cascade of lookup strategies (Resolver). Rows that cannot be
//     resolved are dropped with the reason of every step.
//   - Pricing: a limit price is derived from a QuoteSnapshot (Pricer), aligned
//     on the instrument's ticks, and turned into a planned whole quantity.
//   - Reconciliation: holdings and working orders are netted against the
//     planned quantities to produce OrderDelta values (Reconcile), filtered on
//     exchange hours.
//   - Confirmation: an Engine walks the operator through the deltas and
//     submits the confirmed ones exactly once.
//
// Priced instruments round-trip through a CSV artifact so a later run can
// re-price them or order from them without resolving again. A CacheGate
// prevents ordering while the broker rebuilds its positions cache.
//
// The broker, market data and operator are collaborators behind small
// interfaces; package clientportal implements the broker side and package
// cmd the terminal side.
package rebalance
