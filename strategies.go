package rebalance

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// OptionStrategy resolves option rows from the terms encoded in their ticker.
// It is final: an option row is never resolved to its underlying.
func OptionStrategy(lookup InstrumentLookup) Strategy {
	return Strategy{
		Name:  "option",
		Final: true,
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			spec, ok := row.Option()
			if !ok {
				if looksLikeOption(row.Name) {
					return nil, fmt.Errorf("option %q has no parsable ticker: %w", row.Name, errNotFound)
				}
				return nil, errSkip
			}
			cs, err := lookup.LookupOption(ctx, spec)
			for i := range cs {
				if !cs[i].Multiplier.IsPositive() {
					cs[i].Multiplier = DefaultOptionMultiplier
				}
			}
			return cs, err
		},
	}
}

// RedirectStrategy trades rows listed on a redirected MIC on one of its
// replacement MICs instead. Listings found by name are looked up on every
// replacement and ranked: a listing already held wins (largest position
// first), then an exact name match, then the first hit in redirect order.
// Companies whose name scores under threshold against the row's are never
// candidates.
func RedirectStrategy(lookup InstrumentLookup, redirects map[string][]string, holdings []Holding, threshold float64) Strategy {
	held := make(map[InstrumentID]Holding, len(holdings))
	for _, h := range holdings {
		held[h.ID] = h
	}
	return Strategy{
		Name: "redirect",
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			targets := redirects[row.MIC]
			if len(targets) == 0 {
				return nil, errSkip
			}
			var rejected *MismatchError
			similar := func(c Candidate) bool {
				if row.Name == "" || c.Name == "" {
					return true
				}
				score := NameSimilarity(row.Name, c.Name)
				if score >= threshold {
					return true
				}
				if rejected == nil || score > rejected.Score {
					rejected = &MismatchError{Want: row.Name, Best: c.Name, Score: score}
				}
				return false
			}

			symbols := []string{}
			if s := row.Symbol(); s != "" {
				symbols = append(symbols, s)
			}
			if row.Name != "" {
				found, err := lookup.SearchName(ctx, row.Name)
				if err != nil {
					return nil, err
				}
				for _, c := range found {
					if c.Symbol != "" && similar(c) && !slices.Contains(symbols, c.Symbol) {
						symbols = append(symbols, c.Symbol)
					}
				}
			}

			var hits []Candidate
			for _, mic := range targets {
				for _, sym := range symbols {
					cs, err := lookup.LookupSymbol(ctx, sym, mic)
					if err != nil {
						continue
					}
					for _, c := range cs {
						if c.MIC == "" {
							c.MIC = mic
						}
						if c.MIC == mic && similar(c) {
							hits = append(hits, c)
						}
					}
				}
			}
			hits = distinct(hits)
			if len(hits) == 0 {
				if rejected != nil {
					return nil, rejected
				}
				return nil, nil
			}

			var best *Candidate
			for i, c := range hits {
				h, ok := held[c.ID]
				if !ok {
					continue
				}
				if best == nil || h.Quantity.Abs().GreaterThan(held[best.ID].Quantity.Abs()) {
					best = &hits[i]
				}
			}
			if best == nil {
				want := NormalizeName(row.Name)
				for i, c := range hits {
					if want != "" && NormalizeName(c.Name) == want {
						best = &hits[i]
						break
					}
				}
			}
			if best == nil {
				best = &hits[0]
			}
			return []Candidate{*best}, nil
		},
	}
}

// SymbolStrategy looks the ticker up, scoped to the row's exchange when it has one.
func SymbolStrategy(lookup InstrumentLookup) Strategy {
	return Strategy{
		Name: "symbol",
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			sym := row.Symbol()
			if sym == "" {
				return nil, errSkip
			}
			return lookup.LookupSymbol(ctx, sym, row.MIC)
		},
	}
}

// ListingStrategy lists every venue of the ticker and keeps the listing on the
// row's exchange. It never guesses between listings of the same exchange.
func ListingStrategy(lookup InstrumentLookup) Strategy {
	return Strategy{
		Name: "listing",
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			sym := row.Symbol()
			if sym == "" || row.MIC == "" {
				return nil, errSkip
			}
			cs, err := lookup.LookupSymbol(ctx, sym, "")
			if err != nil {
				return nil, err
			}
			return onExchange(cs, row.MIC), nil
		},
	}
}

// NameStrategy searches company names and accepts candidates similar enough to the row's name.
func NameStrategy(lookup InstrumentLookup, threshold float64) Strategy {
	return Strategy{
		Name: "name",
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			if strings.TrimSpace(row.Name) == "" {
				return nil, errSkip
			}
			cs, err := lookup.SearchName(ctx, row.Name)
			if err != nil || len(cs) == 0 {
				return nil, err
			}
			var (
				similar []Candidate
				best    Candidate
				score   = -1.0
			)
			for _, c := range distinct(cs) {
				s := NameSimilarity(row.Name, c.Name)
				if s > score {
					best, score = c, s
				}
				if s >= threshold {
					similar = append(similar, c)
				}
			}
			if len(similar) == 0 {
				return nil, &MismatchError{Want: row.Name, Best: best.Name, Score: score}
			}
			if len(similar) > 1 && row.MIC != "" {
				if on := onExchange(similar, row.MIC); len(on) > 0 {
					similar = on
				}
			}
			return similar, nil
		},
	}
}

// SuggestStrategy delegates to an external suggester and accepts its answer as is.
func SuggestStrategy(s NameSuggester) Strategy {
	return Strategy{
		Name: "suggest",
		Find: func(ctx context.Context, row PortfolioRow) ([]Candidate, error) {
			c, err := s.Suggest(ctx, row)
			if err != nil || c == nil {
				return nil, err
			}
			return []Candidate{*c}, nil
		},
	}
}

func onExchange(cs []Candidate, mic string) []Candidate {
	var out []Candidate
	for _, c := range cs {
		if c.MIC == mic {
			out = append(out, c)
		}
	}
	return out
}
