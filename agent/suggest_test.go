package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// scripted replays model turns and records what it was sent.
type scripted struct {
	turns []*genai.Content
	sent  [][]*genai.Part
}

func (s *scripted) Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	s.sent = append(s.sent, parts)
	if len(s.turns) == 0 {
		return nil, errors.New("script exhausted")
	}
	c := s.turns[0]
	s.turns = s.turns[1:]
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: c}}}, nil
}

func text(s string) *genai.Content { return &genai.Content{Parts: []*genai.Part{{Text: s}}} }

func call(name string, args map[string]any) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{ID: "c1", Name: name, Args: args}}}}
}

type listings map[string][]rebalance.Candidate

func (l listings) LookupSymbol(ctx context.Context, symbol, mic string) ([]rebalance.Candidate, error) {
	var out []rebalance.Candidate
	for _, c := range l[symbol] {
		if mic == "" || c.MIC == mic {
			out = append(out, c)
		}
	}
	return out, nil
}

func (listings) SearchName(ctx context.Context, name string) ([]rebalance.Candidate, error) {
	return nil, nil
}

func (listings) LookupOption(ctx context.Context, spec rebalance.OptionSpec) ([]rebalance.Candidate, error) {
	return nil, nil
}

var nestle = listings{
	"NESN": {{ID: "1", Symbol: "NESN", Name: "NESTLE SA-REG", MIC: "XSWX", Currency: "CHF"}},
	"NSRGY": {
		{ID: "2", Symbol: "NSRGY", Name: "NESTLE SA-SPONS ADR", MIC: "OTCM", Currency: "USD"},
		{ID: "3", Symbol: "NSRGY", Name: "NESTLE SA-SPONS ADR", MIC: "XFRA", Currency: "EUR"},
	},
}

func suggester(s *scripted) *Suggester {
	return &Suggester{
		Lookup: nestle,
		Model:  DefaultModel,
		open: func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (chat, error) {
			return s, nil
		},
		log: zerolog.Nop(),
	}
}

func TestSuggest(t *testing.T) {
	testCases := []struct {
		name  string
		row   rebalance.PortfolioRow
		turns []*genai.Content
		want  rebalance.InstrumentID // empty for no suggestion
	}{
		{
			name:  "direct answer",
			row:   rebalance.PortfolioRow{Name: "Nestle SA"},
			turns: []*genai.Content{text(`{"symbol": "nesn", "exchange": "XSWX"}`)},
			want:  "1",
		},
		{
			name: "after a lookup",
			row:  rebalance.PortfolioRow{Name: "Nestle SA"},
			turns: []*genai.Content{
				call("lookup_symbol", map[string]any{"symbol": "NESN"}),
				text("```json\n{\"symbol\": \"NESN\", \"exchange\": \"\"}\n```"),
			},
			want: "1",
		},
		{
			name:  "several listings narrowed by the row exchange",
			row:   rebalance.PortfolioRow{Name: "Nestle ADR", MIC: "XFRA"},
			turns: []*genai.Content{text(`{"symbol": "NSRGY"}`)},
			want:  "3",
		},
		{
			name:  "several listings",
			row:   rebalance.PortfolioRow{Name: "Nestle ADR"},
			turns: []*genai.Content{text(`{"symbol": "NSRGY"}`)},
		},
		{
			name:  "not confident",
			row:   rebalance.PortfolioRow{Name: "Unknown Holdings"},
			turns: []*genai.Content{text(`{"symbol": ""}`)},
		},
		{
			name:  "unknown to the broker",
			row:   rebalance.PortfolioRow{Name: "Unknown Holdings"},
			turns: []*genai.Content{text(`{"symbol": "ZZZZ"}`)},
		},
		{
			name:  "prose",
			row:   rebalance.PortfolioRow{Name: "Nestle SA"},
			turns: []*genai.Content{text("I think it is NESN.")},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := suggester(&scripted{turns: tc.turns})
			got, err := s.Suggest(context.Background(), tc.row)
			if err != nil {
				t.Fatalf("Suggest() error = %v", err)
			}
			switch {
			case tc.want == "" && got != nil:
				t.Errorf("Suggest() = %v, want no suggestion", got.ID)
			case tc.want != "" && got == nil:
				t.Errorf("Suggest() = nil, want %v", tc.want)
			case tc.want != "" && got.ID != tc.want:
				t.Errorf("Suggest() = %v, want %v", got.ID, tc.want)
			}
		})
	}
}

func TestLookupFunctionResponse(t *testing.T) {
	script := &scripted{turns: []*genai.Content{
		call("lookup_symbol", map[string]any{"symbol": "nsrgy", "exchange": "otcm"}),
		text(`{"symbol": "NSRGY", "exchange": "OTCM"}`),
	}}
	got, err := suggester(script).Suggest(context.Background(), rebalance.PortfolioRow{Name: "Nestle ADR"})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "2" {
		t.Fatalf("Suggest() = %v, want listing 2", got)
	}
	if len(script.sent) != 2 {
		t.Fatalf("sent %d turns, want 2", len(script.sent))
	}
	resp := script.sent[1][0].FunctionResponse
	if resp == nil || resp.Name != "lookup_symbol" || resp.ID != "c1" {
		t.Fatalf("second turn = %+v, want the lookup_symbol response", script.sent[1][0])
	}
	ls, ok := resp.Response["listings"].([]map[string]any)
	if !ok || len(ls) != 1 || ls[0]["exchange"] != "OTCM" {
		t.Errorf("listings = %v, want the OTCM listing only", resp.Response["listings"])
	}
}

func TestSuggestUnavailable(t *testing.T) {
	s := suggester(&scripted{})
	_, err := s.Suggest(context.Background(), rebalance.PortfolioRow{Name: "Nestle SA"})
	if !errors.Is(err, rebalance.ErrUnavailable) {
		t.Errorf("Suggest() error = %v, want ErrUnavailable", err)
	}
}

func TestUnknownFunction(t *testing.T) {
	lib := NewLibrary([]Function{})
	resp := lib(context.Background(), &genai.FunctionCall{ID: "x", Name: "sell_everything"})
	if resp.Response["error"] != "unknown function sell_everything" {
		t.Errorf("response = %v", resp.Response)
	}
}

func TestTooManyCalls(t *testing.T) {
	var turns []*genai.Content
	for range maxCalls + 1 {
		turns = append(turns, call("lookup_symbol", map[string]any{"symbol": "NESN"}))
	}
	s := suggester(&scripted{turns: turns})
	_, err := s.Suggest(context.Background(), rebalance.PortfolioRow{Name: "Nestle SA"})
	if !errors.Is(err, rebalance.ErrUnavailable) {
		t.Errorf("Suggest() error = %v, want ErrUnavailable", err)
	}
}
