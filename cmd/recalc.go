package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/google/subcommands"
)

type recalcCmd struct{}

func (*recalcCmd) Name() string { return "recalc" }
func (*recalcCmd) Synopsis() string {
	return "re-price the saved portfolio with fresh quotes"
}
func (*recalcCmd) Usage() string {
	return `rbl recalc

  Loads the saved priced portfolio, keeps its resolved instruments and
  prices them again with fresh market data.

`
}

func (c *recalcCmd) SetFlags(f *flag.FlagSet) {}

func (c *recalcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := newSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	saved, err := s.loadArtifact()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := s.connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	priced, drops, err := s.price(ctx, rebalance.Resolved(saved))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pricing: %v\n", err)
		return subcommands.ExitFailure
	}
	printDrops(drops)
	if err := s.saveArtifact(priced); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
