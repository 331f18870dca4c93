package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/rebalance/journal"
	"github.com/google/subcommands"
)

type journalCmd struct {
	status string
}

func (*journalCmd) Name() string     { return "journal" }
func (*journalCmd) Synopsis() string { return "list the orders sent to the broker" }
func (*journalCmd) Usage() string {
	return `rbl journal [-status <status>]

  Lists the journaled orders, oldest first, with their outcome: pending,
  placed, rejected or failed. A pending order was journaled but its outcome
  never came back; check it in the broker before ordering again.

`
}

func (c *journalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.status, "status", "", "Only list orders with this status.")
}

func (c *journalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := newSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	j, err := s.openJournal()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	subs, err := j.Submissions(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if c.status != "" {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.Status == c.status {
				kept = append(kept, sub)
			}
		}
		subs = kept
	}
	if len(subs) == 0 {
		fmt.Println("No journaled orders.")
		return subcommands.ExitSuccess
	}
	printSubmissions(os.Stdout, subs, time.Local)
	return subcommands.ExitSuccess
}

func printSubmissions(w io.Writer, subs []journal.Submission, loc *time.Location) {
	for _, s := range subs {
		t := s.Ticket
		fmt.Fprintf(w, "%s  %-8s %s %s %s@%s @ %s", s.Created.In(loc).Format("2006-01-02 15:04"), s.Status, t.Side, t.Quantity, t.Symbol, t.MIC, t.Limit)
		if s.OrderID != "" {
			fmt.Fprintf(w, " #%s", s.OrderID)
		}
		if s.Error != "" {
			fmt.Fprintf(w, ": %s", s.Error)
		}
		fmt.Fprintln(w)
	}
}
