package rebalance

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// errSkip is returned by a strategy that does not apply to a row.
	errSkip = errors.New("strategy does not apply")
	// errNotFound is returned by a strategy with a reason to report for an empty answer.
	errNotFound = errors.New("not found")
)

// Strategy is one step of the resolution cascade.
type Strategy struct {
	Name string
	Find func(ctx context.Context, row PortfolioRow) ([]Candidate, error)
	// Final stops the cascade when the step applies to a row but does not
	// yield exactly one candidate.
	Final bool
}

// Resolver maps portfolio rows to unique instruments by trying its strategies
// in order and stopping at the first one that yields exactly one candidate.
type Resolver struct {
	Strategies  []Strategy
	Similarity  float64 // threshold under which a resolved name is flagged as a mismatch
	Parallelism int
	log         zerolog.Logger
}

// ResolverOptions configures NewResolver.
type ResolverOptions struct {
	// Similarity is the minimum NameSimilarity accepted by the name search.
	Similarity float64
	// Redirects maps a MIC to the MICs to trade instead.
	Redirects map[string][]string
	// Holdings are preferred when a redirect finds several listings.
	Holdings []Holding
	// Suggester is the optional last resort.
	Suggester   NameSuggester
	Parallelism int
	Logger      zerolog.Logger
}

// DefaultSimilarity is the name similarity threshold when none is configured.
const DefaultSimilarity = 0.75

// NewResolver builds the standard cascade on top of lookup.
func NewResolver(lookup InstrumentLookup, opts ResolverOptions) *Resolver {
	if opts.Similarity <= 0 {
		opts.Similarity = DefaultSimilarity
	}
	strategies := []Strategy{
		OptionStrategy(lookup),
		RedirectStrategy(lookup, opts.Redirects, opts.Holdings, opts.Similarity),
		SymbolStrategy(lookup),
		ListingStrategy(lookup),
		NameStrategy(lookup, opts.Similarity),
	}
	if opts.Suggester != nil {
		strategies = append(strategies, SuggestStrategy(opts.Suggester))
	}
	return &Resolver{
		Strategies:  strategies,
		Similarity:  opts.Similarity,
		Parallelism: opts.Parallelism,
		log:         opts.Logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the unique instrument for row, or an *UnresolvedError that
// lists why each step failed. Collaborator errors count as zero candidates.
func (r *Resolver) Resolve(ctx context.Context, row PortfolioRow) (ResolvedInstrument, error) {
	unresolved := &UnresolvedError{Row: row}
	for _, s := range r.Strategies {
		if err := ctx.Err(); err != nil {
			return ResolvedInstrument{}, err
		}
		candidates, err := s.Find(ctx, row)
		if errors.Is(err, errSkip) {
			continue
		}
		candidates = distinct(candidates)
		if f, failed := stepFailure(s.Name, candidates, err); failed {
			if f.Reason == Unavailable {
				r.log.Warn().Err(err).Str("step", s.Name).Str("row", row.String()).Msg("lookup failed")
			}
			unresolved.Steps = append(unresolved.Steps, f)
			if s.Final {
				return ResolvedInstrument{}, unresolved
			}
			continue
		}
		c := candidates[0]
		flagged := row.Name != "" && c.Name != "" && NameSimilarity(row.Name, c.Name) < r.Similarity
		r.log.Debug().Str("step", s.Name).Str("row", row.String()).Str("id", string(c.ID)).Msg("resolved")
		return newResolved(row, c, s.Name, flagged), nil
	}
	return ResolvedInstrument{}, unresolved
}

// stepFailure reports why a step did not yield exactly one candidate.
func stepFailure(step string, candidates []Candidate, err error) (StepFailure, bool) {
	var mismatch *MismatchError
	switch {
	case errors.As(err, &mismatch):
		return StepFailure{Step: step, Reason: NameMismatch, Err: err}, true
	case errors.Is(err, errNotFound):
		return StepFailure{Step: step, Reason: NotFound, Err: err}, true
	case err != nil:
		return StepFailure{Step: step, Reason: Unavailable, Err: err}, true
	case len(candidates) == 0:
		return StepFailure{Step: step, Reason: NotFound}, true
	case len(candidates) > 1:
		return StepFailure{Step: step, Reason: Ambiguous, Candidates: len(candidates)}, true
	}
	return StepFailure{}, false
}

// ResolveAll resolves rows concurrently and returns the instruments in input
// order. Unresolved rows are returned separately and never stop the batch.
func (r *Resolver) ResolveAll(ctx context.Context, rows []PortfolioRow) ([]ResolvedInstrument, []*UnresolvedError, error) {
	type result struct {
		ok  ResolvedInstrument
		err error
	}
	results := make([]result, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallelism, 1))
	for i, row := range rows {
		g.Go(func() error {
			res, err := r.Resolve(gctx, row)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = result{res, err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		resolved   []ResolvedInstrument
		unresolved []*UnresolvedError
	)
	for _, res := range results {
		var u *UnresolvedError
		switch {
		case errors.As(res.err, &u):
			unresolved = append(unresolved, u)
			r.log.Warn().Str("row", u.Row.String()).Str("reason", u.Reason().String()).Msg("row dropped")
		case res.err != nil:
			return nil, nil, res.err
		default:
			resolved = append(resolved, res.ok)
		}
	}
	return resolved, unresolved, nil
}

// distinct drops candidates repeating an earlier ID.
func distinct(cs []Candidate) []Candidate {
	seen := make(map[InstrumentID]bool, len(cs))
	out := cs[:0:0]
	for _, c := range cs {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
