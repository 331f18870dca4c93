package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

type cancelAllCmd struct{}

func (*cancelAllCmd) Name() string { return "cancel-all" }
func (*cancelAllCmd) Synopsis() string {
	return "walk through the working orders and cancel them"
}
func (*cancelAllCmd) Usage() string {
	return `rbl cancel-all

  Lists every working order and asks whether to cancel it. Answers can cover
  a whole exchange or every remaining order. Orders on closed exchanges are
  kept unless -all-exchanges is given.

`
}

func (c *cancelAllCmd) SetFlags(f *flag.FlagSet) {}

func (c *cancelAllCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := newSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	rep, err := s.cancelAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cancelling orders: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderCancel(renderer.NewCancel(rep)))

	if len(rep.Cancelled) > 0 && s.cfg.GateEnabled() {
		gate, err := s.gate()
		if err == nil {
			err = gate.Reset(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error invalidating the positions cache: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

// cancelAll runs the cancel consent loop over every working order.
func (s *session) cancelAll(ctx context.Context) (rebalance.CancelReport, error) {
	open, err := s.client.OpenOrders(ctx)
	if err != nil {
		return rebalance.CancelReport{}, fmt.Errorf("open orders: %w", err)
	}
	if len(open) == 0 {
		fmt.Println("No working orders.")
		return rebalance.CancelReport{}, nil
	}
	return rebalance.CancelOrders(ctx, open, s.client, s.term, s.calendar, *allExchanges, s.log), nil
}
