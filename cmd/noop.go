package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type noopCmd struct {
	xlsx string
}

func (*noopCmd) Name() string { return "noop" }
func (*noopCmd) Synopsis() string {
	return "resolve and price the targets without ordering"
}
func (*noopCmd) Usage() string {
	return `rbl noop [-xlsx <workbook>]

  Resolves and prices the target portfolio and saves it, without touching
  positions or orders. Use "rbl order" to order from the saved portfolio.

`
}

func (c *noopCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.xlsx, "xlsx", "", "Target workbook. Defaults to the newest workbook of the assets folder.")
}

func (c *noopCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if _, _, err := s.prepare(ctx, c.xlsx); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
