// Package agent asks a Gemini model for the listing of a security the
// contract resolver could not find.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

const instruction = `
You identify listed securities for a brokerage. You receive one line of a
target portfolio: a display name, the ticker written by the portfolio
manager, and sometimes the ISO market identifier (MIC) of the primary
exchange.

Find the exchange ticker and MIC under which the security trades. Use the
lookup_symbol tool to check your guess against the broker's contract
database; try alternatives (share classes, primary listing, ADR) when it
finds nothing.

Answer with a single JSON object and nothing else:
{"symbol": "<ticker>", "exchange": "<MIC or empty>"}
Answer {"symbol": ""} when you are not confident.
`

type suggestion struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// Suggester implements rebalance.NameSuggester.
type Suggester struct {
	Lookup rebalance.InstrumentLookup
	Model  string

	// open starts a chat for one question.
	open func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (chat, error)
	log  zerolog.Logger
}

// NewSuggester returns a suggester backed by client, checking its answers
// with lookup.
func NewSuggester(client *genai.Client, model string, lookup rebalance.InstrumentLookup, logger zerolog.Logger) *Suggester {
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{
		Lookup: lookup,
		Model:  model,
		open: func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (chat, error) {
			c, err := client.Chats.Create(ctx, model, cfg, nil)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		log: logger.With().Str("component", "agent").Logger(),
	}
}

// Suggest asks the model for the listing of row. Every row gets its own
// chat, so calls can run in parallel. Only an answer the broker confirms
// with a single listing is returned.
func (s *Suggester) Suggest(ctx context.Context, row rebalance.PortfolioRow) (*rebalance.Candidate, error) {
	tools := []Function{s.lookupFunction()}
	e := &Expert{
		Name:      "Researcher",
		ModelName: s.Model,
		Config: &genai.GenerateContentConfig{
			Tools:             []*genai.Tool{{FunctionDeclarations: NewDeclaration(tools)}},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		},
		Library: NewLibrary(tools),
	}
	c, err := s.open(ctx, e.ModelName, e.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rebalance.ErrUnavailable, err)
	}
	e.chat = c

	content, err := e.Ask(ctx, &genai.Part{Text: question(row)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rebalance.ErrUnavailable, err)
	}
	answer, err := parseSuggestion(Text(content))
	if err != nil {
		s.log.Warn().Err(err).Stringer("row", row).Msg("unusable answer")
		return nil, nil
	}
	if answer.Symbol == "" {
		return nil, nil
	}

	cs, err := s.Lookup.LookupSymbol(ctx, answer.Symbol, answer.Exchange)
	if err != nil {
		return nil, err
	}
	if len(cs) > 1 && row.MIC != "" {
		var same []rebalance.Candidate
		for _, c := range cs {
			if c.MIC == row.MIC {
				same = append(same, c)
			}
		}
		cs = same
	}
	if len(cs) != 1 {
		s.log.Info().Stringer("row", row).Str("symbol", answer.Symbol).Str("exchange", answer.Exchange).Int("listings", len(cs)).Msg("suggestion not confirmed by the broker")
		return nil, nil
	}
	s.log.Info().Stringer("row", row).Str("symbol", cs[0].Symbol).Str("mic", cs[0].MIC).Msg("suggestion accepted")
	return &cs[0], nil
}

func question(row rebalance.PortfolioRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", row.Name)
	if t := strings.TrimSpace(row.Ticker); t != "" {
		fmt.Fprintf(&b, "Ticker: %s\n", t)
	}
	if t := strings.TrimSpace(row.AltTicker); t != "" {
		fmt.Fprintf(&b, "Security ticker: %s\n", t)
	}
	if row.MIC != "" {
		fmt.Fprintf(&b, "Primary exchange MIC: %s\n", row.MIC)
	}
	return b.String()
}

// parseSuggestion reads the JSON object of an answer, tolerating markdown
// code fences around it.
func parseSuggestion(text string) (suggestion, error) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return suggestion{}, fmt.Errorf("no JSON object in %q", text)
	}
	var s suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return suggestion{}, fmt.Errorf("invalid answer %q: %w", text, err)
	}
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Exchange = strings.ToUpper(strings.TrimSpace(s.Exchange))
	return s, nil
}

// lookupFunction lets the model query the broker's contract database.
func (s *Suggester) lookupFunction() *Func {
	decl := &genai.FunctionDeclaration{
		Name:        "lookup_symbol",
		Description: "Lists the broker's listings of a ticker, optionally restricted to one exchange MIC.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"symbol":   {Type: genai.TypeString, Description: "Exchange ticker, e.g. NESN."},
				"exchange": {Type: genai.TypeString, Description: "ISO 10383 MIC, e.g. XSWX. Empty for all exchanges."},
			},
			Required: []string{"symbol"},
		},
	}
	return &Func{
		Decl: decl,
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			symbol, _ := args["symbol"].(string)
			exchange, _ := args["exchange"].(string)
			if strings.TrimSpace(symbol) == "" {
				return failure(id, decl.Name, "symbol is required")
			}
			cs, err := s.Lookup.LookupSymbol(ctx, strings.ToUpper(symbol), strings.ToUpper(exchange))
			if err != nil {
				return failure(id, decl.Name, err.Error())
			}
			listings := make([]map[string]any, 0, len(cs))
			for _, c := range cs {
				listings = append(listings, map[string]any{
					"symbol":   c.Symbol,
					"name":     c.Name,
					"exchange": c.MIC,
					"currency": c.Currency,
				})
			}
			s.log.Debug().Str("symbol", symbol).Str("exchange", exchange).Int("listings", len(cs)).Msg("lookup_symbol")
			return &genai.FunctionResponse{ID: id, Name: decl.Name, Response: map[string]any{"listings": listings}}
		},
	}
}

var _ rebalance.NameSuggester = (*Suggester)(nil)
