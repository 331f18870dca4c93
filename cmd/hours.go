package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/rebalance/hours"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

type hoursCmd struct {
	at string
}

func (*hoursCmd) Name() string     { return "hours" }
func (*hoursCmd) Synopsis() string { return "tell which exchanges are trading" }
func (*hoursCmd) Usage() string {
	return `rbl hours [-at <time>] <MIC>...

  Prints whether each exchange, named by its ISO MIC, is in its regular
  session. Exchanges without known hours are reported as unknown.

`
}

func (c *hoursCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.at, "at", "", "RFC 3339 time to check instead of now.")
}

func (c *hoursCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	at := time.Now()
	if c.at != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, c.at); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -at: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one MIC is required")
		return subcommands.ExitUsageError
	}
	printHours(os.Stdout, hours.New(hours.AssumeClosed, nil, zerolog.Nop()), at, f.Args())
	return subcommands.ExitSuccess
}

func printHours(w io.Writer, cal *hours.Calendar, at time.Time, mics []string) {
	for _, mic := range mics {
		state := "closed"
		switch {
		case !cal.Known(mic):
			state = "unknown"
		case cal.IsOpenAt(mic, at):
			state = "open"
		}
		fmt.Fprintf(w, "%-6s %s\n", mic, state)
	}
}
