package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type runCmd struct {
	buyAll bool
	xlsx   string
}

func (*runCmd) Name() string { return "run" }
func (*runCmd) Synopsis() string {
	return "rebalance the account to the newest target workbook"
}
func (*runCmd) Usage() string {
	return `rbl run [-buy-all] [-xlsx <workbook>]

  Reads the target portfolio, resolves every row to a broker instrument,
  prices it, saves the priced portfolio, then reconciles it against the
  account and asks for confirmation of each order.

  With -buy-all the full targets are ordered, ignoring positions and
  working orders.

`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.buyAll, "buy-all", false, "Order the full targets, ignoring positions and working orders.")
	f.StringVar(&c.xlsx, "xlsx", "", "Target workbook. Defaults to the newest workbook of the assets folder.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	targets, drops, err := s.prepare(ctx, c.xlsx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	rep, extra, err := s.order(ctx, targets, c.buyAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error ordering: %v\n", err)
		return subcommands.ExitFailure
	}
	s.summarize(rep, append(drops, extra...))
	return subcommands.ExitSuccess
}
