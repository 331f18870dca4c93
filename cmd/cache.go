package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

type cacheReadyCmd struct {
	keep bool
}

func (*cacheReadyCmd) Name() string { return "cache-ready" }
func (*cacheReadyCmd) Synopsis() string {
	return "cancel working orders and reset the broker positions cache"
}
func (*cacheReadyCmd) Usage() string {
	return `rbl cache-ready [-keep-orders]

  Walks through the working orders for cancellation, then invalidates the
  gateway positions cache and records the time. Ordering is refused until
  the cache had time to refill.

`
}

func (c *cacheReadyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.keep, "keep-orders", false, "Do not offer to cancel working orders first.")
}

func (c *cacheReadyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if !c.keep {
		rep, err := s.cancelAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error cancelling orders: %v\n", err)
			return subcommands.ExitFailure
		}
		if len(rep.Cancelled)+len(rep.Kept)+len(rep.Failed) > 0 {
			printMarkdown(renderer.RenderCancel(renderer.NewCancel(rep)))
		}
	}

	gate, err := s.gate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := gate.Reset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error invalidating the positions cache: %v\n", err)
		return subcommands.ExitFailure
	}
	left, err := gate.Remaining(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Positions cache invalidated, ordering is possible from %s.\n", time.Now().Add(left).Format("15:04"))
	return subcommands.ExitSuccess
}
