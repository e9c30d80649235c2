package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"trade-report/internal/reconstruct"
	"trade-report/internal/types"
	"trade-report/internal/validate"
)

func replSession(t *testing.T) *validate.Session {
	t.Helper()
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	fill := func(id, symbol string, side types.Side, minute int, qty, amount float64) types.Fill {
		return types.Fill{ID: id, Date: at.Add(time.Duration(minute) * time.Minute), Symbol: symbol, Side: side, Qty: qty, Amount: amount}
	}
	s := validate.NewSession("cli", "test.csv", []types.Fill{
		fill("a", "X", types.SideBuy, 1, 1, 100),
		fill("b", "X", types.SideSell, 2, 2, 210),
		fill("c", "Y", types.SideBuy, 3, 1, 50),
		fill("d", "Y", types.SideSell, 4, 1, 55),
	}, reconstruct.Options{}, nil)
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestREPLCorrectAndConfirm(t *testing.T) {
	s := replSession(t)
	in := strings.NewReader("help\nbalance 1 2\nungroup c d\ngroup 3 4\nbogus\nconfirm\n")
	var out bytes.Buffer

	if err := newREPL(s, in, &out).run(context.Background()); err != nil {
		t.Fatalf("Expected confirm to end the loop cleanly, got %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"TRADES (1)",
		"UNGROUPED (2)",
		"not groupable",
		"removed 2 fill(s), 1 trade(s) deleted",
		"created trade",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q\n%s", want, got)
		}
	}

	report, err := s.Confirm(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 1 || report.Summary.Net != "5.00" {
		t.Errorf("Expected one trade netting 5.00, got %d and %s", report.Total, report.Summary.Net)
	}
}

func TestREPLQuitAndEOF(t *testing.T) {
	for name, input := range map[string]string{"quit": "quit\n", "eof": "list\n"} {
		err := newREPL(replSession(t), strings.NewReader(input), &bytes.Buffer{}).run(context.Background())
		if !errors.Is(err, errAborted) {
			t.Errorf("%s: expected errAborted, got %v", name, err)
		}
	}
}

func TestREPLRejectsUnknownFillNumber(t *testing.T) {
	var out bytes.Buffer
	err := newREPL(replSession(t), strings.NewReader("group 1 9\nquit\n"), &out).run(context.Background())
	if !errors.Is(err, errAborted) {
		t.Fatalf("Expected errAborted, got %v", err)
	}
	if !strings.Contains(out.String(), "no fill number 9") {
		t.Errorf("Expected fill number error, got:\n%s", out.String())
	}
}
