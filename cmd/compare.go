package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/etnz/rebalance/sheet"
	"github.com/google/subcommands"
)

type compareCmd struct {
	output string
}

func (*compareCmd) Name() string { return "compare" }
func (*compareCmd) Synopsis() string {
	return "compare the saved targets with the account"
}
func (*compareCmd) Usage() string {
	return `rbl compare [-o <workbook>]

  Compares the saved priced portfolio with the positions and working
  orders of the account. The comparison is printed and written to a
  workbook, comparison.xlsx in the output folder by default.

`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Comparison workbook to write.")
}

func (c *compareCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	holdings, err := s.client.Holdings(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading holdings: %v\n", err)
		return subcommands.ExitFailure
	}
	open, err := s.client.OpenOrders(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading open orders: %v\n", err)
		return subcommands.ExitFailure
	}

	rows := rebalance.Compare(targets, holdings, open)
	printMarkdown(renderer.RenderComparison(renderer.NewComparison(rows, s.cfg.Gateway.BaseCurrency)))

	path := c.output
	if path == "" {
		path = filepath.Join(s.cfg.Paths.Output, "comparison.xlsx")
	}
	if err := sheet.WriteComparison(path, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Comparison written to %s\n", path)
	return subcommands.ExitSuccess
}
