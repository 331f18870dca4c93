package sheet

import (
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Redirects move the allocation of a ticker onto another one. Keys and
// values are ticker prefixes: the first word of the ticker.
type Redirects struct {
	Stocks  map[string]string `yaml:"stocks"`
	Options map[string]string `yaml:"options"`
}

// prefix is the first word of the ticker used for redirection. Options
// match on the Ticker column, stocks on the security ticker first.
func prefix(a Allocation) string {
	raw := a.Row.Ticker
	if !a.Row.IsOption() && strings.TrimSpace(a.Row.AltTicker) != "" {
		raw = a.Row.AltTicker
	}
	if f := strings.Fields(raw); len(f) > 0 {
		return strings.ToUpper(f[0])
	}
	return ""
}

// ApplyRedirects merges the weight of every source row into the target rows
// of the same kind, proportionally to their own weights, or evenly when they
// sum to zero. Source rows are removed. A redirect without target rows is
// ignored.
func ApplyRedirects(allocs []Allocation, r Redirects, logger zerolog.Logger) []Allocation {
	log := logger.With().Str("component", "sheet").Logger()
	drop := map[int]bool{}
	for _, pass := range []struct {
		redirects map[string]string
		option    bool
	}{{r.Options, true}, {r.Stocks, false}} {
		for _, source := range slices.Sorted(maps.Keys(pass.redirects)) {
			src := strings.ToUpper(strings.TrimSpace(source))
			tgt := strings.ToUpper(strings.TrimSpace(pass.redirects[source]))
			var from, to []int
			for i, a := range allocs {
				if drop[i] || a.Row.IsOption() != pass.option {
					continue
				}
				switch prefix(a) {
				case src:
					from = append(from, i)
				case tgt:
					to = append(to, i)
				}
			}
			if len(from) == 0 {
				continue
			}
			if len(to) == 0 {
				log.Warn().Str("from", src).Str("to", tgt).Bool("option", pass.option).Msg("redirect has no target rows, skipped")
				continue
			}
			moved, total := decimal.Zero, decimal.Zero
			for _, i := range from {
				moved = moved.Add(allocs[i].Weight)
				drop[i] = true
			}
			for _, i := range to {
				total = total.Add(allocs[i].Weight)
			}
			for _, i := range to {
				if total.IsZero() {
					allocs[i].Weight = allocs[i].Weight.Add(moved.Div(decimal.NewFromInt(int64(len(to)))))
				} else {
					allocs[i].Weight = allocs[i].Weight.Add(moved.Mul(allocs[i].Weight).Div(total))
				}
			}
			log.Info().Str("from", src).Str("to", tgt).Stringer("weight", moved).Int("sources", len(from)).Int("targets", len(to)).Msg("allocation redirected")
		}
	}
	out := allocs[:0:0]
	for i, a := range allocs {
		if !drop[i] {
			out = append(out, a)
		}
	}
	return out
}
