package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/agent"
	"github.com/etnz/rebalance/journal"
	"github.com/etnz/rebalance/renderer"
	"github.com/etnz/rebalance/sheet"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ingest reads the target portfolio from path, or from the newest workbook of
// the assets folder, and converts the allocations to dollar targets.
func (s *session) ingest(ctx context.Context, path string) ([]rebalance.PortfolioRow, []error, error) {
	if path == "" {
		var err error
		if path, err = sheet.LatestWorkbook(s.cfg.Paths.Assets); err != nil {
			return nil, nil, err
		}
	}
	s.log.Info().Str("workbook", path).Msg("reading targets")
	allocs, dropped, err := sheet.ReadAllocations(path)
	if err != nil {
		return nil, nil, err
	}
	allocs = sheet.ApplyRedirects(allocs, s.cfg.Tickers, s.log)

	netLiq := decimal.Zero
	if sheet.NeedsNetLiquidation(allocs) {
		if netLiq, err = s.client.NetLiquidation(ctx); err != nil {
			return nil, nil, fmt.Errorf("net liquidation value: %w", err)
		}
		s.log.Info().Str("net_liquidation", netLiq.StringFixed(2)).Msg("converting allocations to dollars")
	}
	return sheet.Targets(allocs, netLiq), dropErrors(dropped), nil
}

// resolve maps rows to instruments. The LLM suggester joins the cascade when
// it is enabled and a client can be built from the environment.
func (s *session) resolve(ctx context.Context, rows []rebalance.PortfolioRow) ([]rebalance.ResolvedInstrument, []error, error) {
	holdings, err := s.client.Holdings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("holdings unavailable, redirects will not prefer held listings")
	}
	opts := rebalance.ResolverOptions{
		Similarity:  s.cfg.Resolver.Similarity,
		Redirects:   s.cfg.Resolver.Redirects,
		Holdings:    holdings,
		Parallelism: s.cfg.Resolver.Parallelism,
		Logger:      s.log,
	}
	if s.cfg.Resolver.LLM.Enabled {
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("name suggester disabled")
		} else {
			opts.Suggester = agent.NewSuggester(client, s.cfg.Resolver.LLM.Model, s.client, s.log)
		}
	}
	resolved, unresolved, err := rebalance.NewResolver(s.client, opts).ResolveAll(ctx, rows)
	if err != nil {
		return nil, nil, err
	}
	var drops []error
	for _, u := range unresolved {
		drops = append(drops, u)
	}
	for _, r := range resolved {
		if r.NameMismatch {
			s.log.Warn().Str("row", r.Row.String()).Str("resolved", r.Name).Msg("resolved name differs, check the instrument")
		}
	}
	return resolved, drops, nil
}

// price fetches market data and plans every resolved instrument.
func (s *session) price(ctx context.Context, resolved []rebalance.ResolvedInstrument) ([]rebalance.PricedInstrument, []error, error) {
	pricer, err := s.cfg.Pricer()
	if err != nil {
		return nil, nil, err
	}
	priced, dropped, err := rebalance.NewPricing(s.client, pricer, s.log).PriceAll(ctx, resolved)
	if err != nil {
		return nil, nil, err
	}
	return priced, dropErrors(dropped), nil
}

// prepare runs the stages from the workbook to the saved artifact.
func (s *session) prepare(ctx context.Context, xlsx string) ([]rebalance.PricedInstrument, []error, error) {
	rows, drops, err := s.ingest(ctx, xlsx)
	if err != nil {
		return nil, drops, err
	}
	resolved, unresolved, err := s.resolve(ctx, rows)
	drops = append(drops, unresolved...)
	if err != nil {
		return nil, drops, err
	}
	printDrops(drops)
	priced, unpriced, err := s.price(ctx, resolved)
	drops = append(drops, unpriced...)
	if err != nil {
		return nil, drops, err
	}
	printDrops(unpriced)
	if err := s.saveArtifact(priced); err != nil {
		return priced, drops, err
	}
	return priced, drops, nil
}

func (s *session) saveArtifact(priced []rebalance.PricedInstrument) error {
	path := artifactPath(s.cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rebalance.EncodeArtifact(f, priced); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Saved %d priced instruments to %s\n", len(priced), path)
	return nil
}

func (s *session) loadArtifact() ([]rebalance.PricedInstrument, error) {
	path := artifactPath(s.cfg)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no priced portfolio at %s, run noop first", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	priced, err := rebalance.DecodeArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return priced, nil
}

// order reconciles targets against the account and walks the operator
// through the resulting orders. Ordering holds the positions cache gate; the
// cache is invalidated on exit when anything reached the broker.
func (s *session) order(ctx context.Context, targets []rebalance.PricedInstrument, buyAll bool) (rep rebalance.Report, drops []error, err error) {
	markDirty := func() {}
	if s.cfg.GateEnabled() {
		gate, err := s.gate()
		if err != nil {
			return rep, nil, err
		}
		held, err := gate.Acquire(ctx)
		if err != nil {
			return rep, nil, err
		}
		markDirty = held.MarkDirty
		defer func() {
			if rerr := held.Release(ctx); rerr != nil {
				s.log.Error().Err(rerr).Msg("positions cache invalidation")
			}
		}()
	}

	holdings, err := s.client.Holdings(ctx)
	if err != nil {
		return rep, nil, fmt.Errorf("holdings: %w", err)
	}
	open, err := s.client.OpenOrders(ctx)
	if err != nil {
		return rep, nil, fmt.Errorf("open orders: %w", err)
	}

	if !buyAll {
		if stale := rebalance.StaleOrders(targets, open, s.cfg.Stale()); len(stale) > 0 {
			fmt.Printf("%d working orders no longer match their target price.\n", len(stale))
			crep := rebalance.CancelOrders(ctx, stale, s.client, s.term, s.calendar, *allExchanges, s.log)
			if len(crep.Cancelled) > 0 {
				markDirty()
			}
			open = rebalance.Without(open, crep.Cancelled)
		}
	}

	rec := rebalance.Reconcile(targets, holdings, open, rebalance.ReconcileOptions{
		BuyAll:       buyAll,
		AllExchanges: *allExchanges,
		Tolerance:    decimal.NewFromFloat(s.cfg.Orders.Tolerance),
		Calendar:     s.calendar,
	})
	s.log.Info().Int("orders", len(rec.Deltas)).Int("closed", len(rec.Closed)).Int("met", len(rec.Noops)).Msg("reconciled")
	for _, d := range rec.Closed {
		fmt.Printf("Held back, %s is closed: %s\n", d.MIC, d)
	}

	deltas := rec.Deltas
	if !buyAll {
		var extra []rebalance.OrderDelta
		extra, drops, err = s.extras(ctx, rec.Extras)
		if err != nil {
			return rep, drops, err
		}
		deltas = append(deltas, extra...)
	}
	if len(deltas) == 0 {
		fmt.Println("Nothing to order.")
		return rep, drops, nil
	}

	j, err := s.openJournal()
	if err != nil {
		return rep, drops, err
	}
	sub := &journal.Recorder{Journal: j, Next: s.client}
	threshold := decimal.NewFromFloat(s.cfg.Orders.AutoConfirmLimit)
	rep = rebalance.NewEngine(sub, s.term, threshold, s.log).Run(ctx, deltas)
	if rep.Submitted() {
		markDirty()
	}
	return rep, drops, nil
}

// extras applies the extra position policy and returns the closing orders to
// queue, if any.
func (s *session) extras(ctx context.Context, extras []rebalance.Extra) ([]rebalance.OrderDelta, []error, error) {
	policy := s.cfg.ExtraPolicy()
	if policy == rebalance.IgnoreExtras || len(extras) == 0 {
		return nil, nil, nil
	}
	fmt.Printf("%d positions are not in the targets:\n", len(extras))
	for _, e := range extras {
		fmt.Printf("  %s on %s: held %s, working %s\n", e.Symbol, e.MIC, e.Held, e.Open)
	}
	if policy != rebalance.LiquidateExtras {
		return nil, nil, nil
	}
	pricer, err := s.cfg.Pricer()
	if err != nil {
		return nil, nil, err
	}
	ready, closed, dropped, err := rebalance.NewPricing(s.client, pricer, s.log).Liquidate(ctx, extras, s.calendar, *allExchanges)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range closed {
		fmt.Printf("Held back, %s is closed: %s\n", d.MIC, d)
	}
	return ready, dropErrors(dropped), nil
}

// summarize prints the end of run summary.
func (s *session) summarize(rep rebalance.Report, drops []error) {
	printMarkdown(renderer.RenderSummary(renderer.NewSummary(rep, s.cfg.Gateway.BaseCurrency, drops)))
}

func dropErrors(drops []*rebalance.DropError) []error {
	var errs []error
	for _, d := range drops {
		errs = append(errs, d)
	}
	return errs
}

// printDrops lists what a stage dropped, as soon as the stage ends.
func printDrops(drops []error) {
	if len(drops) == 0 {
		return
	}
	fmt.Printf("%d rows dropped:\n", len(drops))
	for _, d := range drops {
		fmt.Printf("  %v\n", d)
	}
}
