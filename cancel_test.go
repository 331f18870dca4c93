package rebalance

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestCancelOrders(t *testing.T) {
	orders := []OpenOrder{
		{OrderID: "1", MIC: "XNYS"},
		{OrderID: "2", MIC: "XLON"},
		{OrderID: "3", MIC: "XNYS"},
		{OrderID: "4", MIC: "XLON"},
		{OrderID: "5", MIC: "XTAE"},
	}
	open := staticCalendar{"XNYS": true, "XLON": true}

	testCases := []struct {
		name      string
		script    []CancelDecision
		all       bool
		fail      map[string]bool
		asked     []string
		cancelled []string
		kept      int
		failed    int
	}{
		{
			name:      "one by one",
			script:    []CancelDecision{CancelOne, KeepOne, CancelOne, CancelOne},
			asked:     []string{"1", "2", "3", "4"},
			cancelled: []string{"1", "3", "4"},
			kept:      2, // 2 and the closed XTAE order
		},
		{
			name:      "cancel all",
			script:    []CancelDecision{CancelAll},
			all:       true,
			asked:     []string{"1"},
			cancelled: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:      "per exchange",
			script:    []CancelDecision{CancelExchange, KeepExchange},
			asked:     []string{"1", "2"},
			cancelled: []string{"1", "3"},
			kept:      3,
		},
		{
			name:   "keep all",
			script: []CancelDecision{KeepAll},
			asked:  []string{"1"},
			kept:   5,
		},
		{
			name:      "prompt failure keeps the rest",
			script:    []CancelDecision{CancelOne},
			asked:     []string{"1", "2"},
			cancelled: []string{"1"},
			kept:      4,
		},
		{
			name:      "failed cancel is reported",
			script:    []CancelDecision{CancelAll},
			fail:      map[string]bool{"3": true},
			asked:     []string{"1"},
			cancelled: []string{"1", "2", "4"},
			kept:      1,
			failed:    1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &fakeCanceller{fail: tc.fail}
			p := &scriptedCancelPrompter{script: tc.script}
			rep := CancelOrders(context.Background(), orders, c, p, open, tc.all, zerolog.Nop())
			if diff := cmp.Diff(tc.asked, p.asked); diff != "" {
				t.Errorf("asked mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.cancelled, c.cancelled); diff != "" {
				t.Errorf("cancelled mismatch (-want +got):\n%s", diff)
			}
			if len(rep.Kept) != tc.kept || len(rep.Failed) != tc.failed {
				t.Errorf("kept = %d, failed = %d; want %d and %d", len(rep.Kept), len(rep.Failed), tc.kept, tc.failed)
			}
		})
	}
}
