package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type orderCmd struct {
	buyAll bool
}

func (*orderCmd) Name() string { return "order" }
func (*orderCmd) Synopsis() string {
	return "order from the saved priced portfolio"
}
func (*orderCmd) Usage() string {
	return `rbl order [-buy-all]

  Reconciles the saved priced portfolio against the account and asks for
  confirmation of each order. Prices are not refreshed, run "rbl recalc"
  first when they are old.

`
}

func (c *orderCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.buyAll, "buy-all", false, "Order the full targets, ignoring positions and working orders.")
}

func (c *orderCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := newSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	targets, err := s.loadArtifact()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := s.connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	rep, drops, err := s.order(ctx, targets, c.buyAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error ordering: %v\n", err)
		return subcommands.ExitFailure
	}
	s.summarize(rep, drops)
	return subcommands.ExitSuccess
}
