package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
	"trade-report/internal/validate"
)

var errAborted = errors.New("validation aborted")

const replHelp = `commands:
  list                   show trades and ungrouped fills
  balance <fill>...      check whether fills would form a trade
  group <fill>...        create a trade from ungrouped fills
  ungroup <fill>...      remove fills from their trades
  analyze                rerun automatic pairing (drops manual changes)
  confirm                finish validation and compute the report
  quit                   leave without a report
fills are referenced by the number shown in list or by full ID`

// repl drives manual validation of one session over a line-based terminal.
type repl struct {
	s   *validate.Session
	in  *bufio.Scanner
	out io.Writer
}

func newREPL(s *validate.Session, in io.Reader, out io.Writer) *repl {
	return &repl{s: s, in: bufio.NewScanner(in), out: out}
}

// run returns nil when the user confirms and errAborted when they quit or
// input ends.
func (r *repl) run(ctx context.Context) error {
	r.list()
	fmt.Fprintln(r.out, "type 'help' for commands")

	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return err
			}
			return errAborted
		}
		fields := strings.Fields(r.in.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := strings.ToLower(fields[0]), fields[1:]
		switch cmd {
		case "help", "?":
			fmt.Fprintln(r.out, replHelp)
		case "list", "ls":
			r.list()
		case "balance":
			r.balance(args)
		case "group":
			r.group(ctx, args)
		case "ungroup":
			r.ungroup(ctx, args)
		case "analyze":
			if _, err := r.s.Analyze(ctx); err != nil {
				fmt.Fprintln(r.out, "error:", err)
				continue
			}
			r.list()
		case "confirm":
			return nil
		case "quit", "exit":
			return errAborted
		default:
			fmt.Fprintf(r.out, "unknown command %q, type 'help'\n", cmd)
		}
	}
}

// resolve turns list numbers or IDs into fill IDs.
func (r *repl) resolve(args []string) ([]string, error) {
	fills := r.s.Workset().Fills
	ids := make([]string, 0, len(args))
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n < 1 || n > len(fills) {
				return nil, fmt.Errorf("no fill number %d", n)
			}
			ids = append(ids, fills[n-1].ID)
			continue
		}
		ids = append(ids, a)
	}
	return ids, nil
}

func (r *repl) balance(args []string) {
	ids, err := r.resolve(args)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	c := r.s.Balance(ids)
	status := "balanced"
	if !c.OK {
		status = "not groupable: " + c.Reason
	}
	fmt.Fprintf(r.out, "%d fills  buy %g  sell %g  diff %g  %s\n", c.Count, c.BuyQty, c.SellQty, c.Delta, status)
}

func (r *repl) group(ctx context.Context, args []string) {
	ids, err := r.resolve(args)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	t, err := r.s.CreateGroup(ctx, ids)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	fmt.Fprintf(r.out, "created trade %s %s result %s\n", shortID(t.ID), t.Symbol, metrics.Format(t.Result))
}

func (r *repl) ungroup(ctx context.Context, args []string) {
	ids, err := r.resolve(args)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	deleted, err := r.s.Ungroup(ctx, ids)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	fmt.Fprintf(r.out, "removed %d fill(s), %d trade(s) deleted\n", len(ids), len(deleted))
}

func (r *repl) list() {
	w := r.s.Workset()
	num := make(map[string]int, len(w.Fills))
	for i, f := range w.Fills {
		num[f.ID] = i + 1
	}

	fmt.Fprintf(r.out, "\nTRADES (%d)\n", len(w.Trades))
	for _, t := range w.SortedTrades() {
		fmt.Fprintf(r.out, "  %s %-12s qty %-10g result %10s  fees %s\n",
			shortID(t.ID), t.Symbol, t.TotalQty, metrics.Format(t.Result), metrics.Format(t.Fees))
		for _, f := range append(append([]types.Fill(nil), t.EntryFills...), t.ExitFills...) {
			fmt.Fprintf(r.out, "      %s\n", fillLine(num[f.ID], f))
		}
	}

	ungrouped := w.Partition().Ungrouped
	fmt.Fprintf(r.out, "UNGROUPED (%d)\n", len(ungrouped))
	for _, f := range ungrouped {
		fmt.Fprintf(r.out, "  %s\n", fillLine(num[f.ID], f))
	}
	fmt.Fprintln(r.out)
}

func fillLine(n int, f types.Fill) string {
	return fmt.Sprintf("[%3d] %s %-12s %-4s qty %-10g price %-12g fee %g",
		n, f.Date.Format("2006-01-02 15:04:05"), f.Symbol, f.Side, f.Qty, f.Price, f.Fee)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
