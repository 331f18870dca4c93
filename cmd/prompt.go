package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// terminal is the operator dialog on a line oriented terminal. It answers
// order prompts, cancel prompts and unknown exchange questions.
type terminal struct {
	in  *bufio.Reader
	out io.Writer

	// currency of order amounts, the account base currency.
	currency string
}

func newTerminal(in *bufio.Reader, out io.Writer) *terminal {
	return &terminal{in: in, out: out}
}

var (
	_ rebalance.Prompter       = (*terminal)(nil)
	_ rebalance.CancelPrompter = (*terminal)(nil)
)

// readLine returns the next trimmed line. A last line without newline is
// returned before io.EOF.
func (t *terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// choose prints question until the answer is one of keys, case insensitive.
func (t *terminal) choose(ctx context.Context, question string, keys string) (byte, error) {
	for {
		fmt.Fprint(t.out, question)
		line, err := t.readLine(ctx)
		if err != nil {
			fmt.Fprintln(t.out)
			return 0, err
		}
		if len(line) == 1 {
			k := strings.ToUpper(line)[0]
			if strings.IndexByte(keys, k) >= 0 {
				return k, nil
			}
		}
		fmt.Fprintf(t.out, "Please answer one of %s.\n", strings.Join(strings.Split(keys, ""), ", "))
	}
}

// Confirm asks about one order.
func (t *terminal) Confirm(ctx context.Context, p rebalance.Prompt) (rebalance.Decision, error) {
	d := p.Delta
	title := "Order"
	if p.Deferred {
		title = "Large order"
	}
	fmt.Fprintf(t.out, "\n%s %d/%d: %s (%s)\n", title, p.Index, p.Total, d, rebalance.M(d.Amount(), t.currency).String())
	if d.Name != "" {
		fmt.Fprintf(t.out, "  %s\n", d.Name)
	}
	question := fmt.Sprintf("[Y] Confirm [A] Confirm All [E] Confirm All %[1]s [M] Modify [S] Skip [X] Skip All %[1]s [Q] Quit: ", d.MIC)
	k, err := t.choose(ctx, question, "YAEMSXQ")
	if err != nil {
		return rebalance.Decision{}, err
	}
	switch k {
	case 'Y':
		return rebalance.Decision{Kind: rebalance.Confirm}, nil
	case 'A':
		return rebalance.Decision{Kind: rebalance.ConfirmAll}, nil
	case 'E':
		return rebalance.Decision{Kind: rebalance.ConfirmExchange}, nil
	case 'S':
		return rebalance.Decision{Kind: rebalance.Skip}, nil
	case 'X':
		return rebalance.Decision{Kind: rebalance.SkipExchange}, nil
	case 'Q':
		return rebalance.Decision{Kind: rebalance.Quit}, nil
	}
	return t.modify(ctx, d)
}

// modify reads the new terms of d. An empty answer keeps the current value.
func (t *terminal) modify(ctx context.Context, d rebalance.OrderDelta) (rebalance.Decision, error) {
	qty, err := t.readDecimal(ctx, "Quantity", d.Quantity)
	if err != nil {
		return rebalance.Decision{}, err
	}
	limit, err := t.readDecimal(ctx, "Limit", d.Limit)
	if err != nil {
		return rebalance.Decision{}, err
	}
	for {
		fmt.Fprintf(t.out, "Side [%s]: ", d.Side)
		line, err := t.readLine(ctx)
		if err != nil {
			return rebalance.Decision{}, err
		}
		side := d.Side
		if line != "" {
			if side, err = rebalance.ParseSide(line); err != nil {
				fmt.Fprintln(t.out, err)
				continue
			}
		}
		return rebalance.Decision{Kind: rebalance.Modify, Quantity: qty, Limit: limit, Side: side}, nil
	}
}

// readDecimal reads a strictly positive number, or current on an empty answer.
func (t *terminal) readDecimal(ctx context.Context, label string, current decimal.Decimal) (decimal.Decimal, error) {
	for {
		fmt.Fprintf(t.out, "%s [%s]: ", label, current)
		line, err := t.readLine(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if line == "" {
			return current, nil
		}
		v, err := decimal.NewFromString(strings.ReplaceAll(line, ",", ""))
		if err != nil || !v.IsPositive() {
			fmt.Fprintf(t.out, "%q is not a positive number.\n", line)
			continue
		}
		return v, nil
	}
}

// ConfirmCancel asks whether to cancel a working order.
func (t *terminal) ConfirmCancel(ctx context.Context, o rebalance.OpenOrder, index, total int) (rebalance.CancelDecision, error) {
	fmt.Fprintf(t.out, "\nCancel %d/%d: %s\n", index, total, o)
	question := fmt.Sprintf("[Y] Cancel [A] Cancel All [E] Cancel All %[1]s [S] Skip [X] Skip All %[1]s [N] Skip All: ", o.MIC)
	k, err := t.choose(ctx, question, "YAESXN")
	if err != nil {
		return 0, err
	}
	return map[byte]rebalance.CancelDecision{
		'Y': rebalance.CancelOne,
		'A': rebalance.CancelAll,
		'E': rebalance.CancelExchange,
		'S': rebalance.KeepOne,
		'X': rebalance.KeepExchange,
		'N': rebalance.KeepAll,
	}[k], nil
}

// AskExchange asks whether an exchange missing from the hours table is open.
func (t *terminal) AskExchange(mic string) (bool, error) {
	k, err := t.choose(context.Background(), fmt.Sprintf("Exchange %s has no known trading hours. Is it open? [O] Open [C] Closed: ", mic), "OC")
	return k == 'O', err
}
