package eod

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

func trade(symbol string, at time.Time, buyPx, sellPx, qty, fees float64) types.Trade {
	return types.Trade{
		ID:         symbol + at.String(),
		Symbol:     symbol,
		EntryFills: []types.Fill{{Date: at, Symbol: symbol, Side: types.SideBuy, Price: buyPx, Qty: qty}},
		ExitFills:  []types.Fill{{Date: at.Add(time.Hour), Symbol: symbol, Side: types.SideSell, Price: sellPx, Qty: qty, Amount: sellPx * qty}},
		TotalQty:   qty,
		Fees:       fees,
		Result:     (sellPx-buyPx)*qty - fees,
	}
}

func sample() types.Report {
	d1 := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return metrics.Compute([]types.Trade{
		trade("ETHUSDT", d1, 100, 110, 2, 0.5),
		trade("BTCUSDT", d1.Add(time.Hour), 50, 45, 1, 0.1),
		trade("ETHUSDT", d1.Add(2*time.Hour), 100, 104, 1, 0),
		trade("ETHUSDT", d2, 100, 90, 1, 0),
	}, 1000)
}

func TestRender(t *testing.T) {
	report := sample()
	b, err := Render(metrics.Filter(report.Trades, metrics.OnDay(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header, 2 symbols and TOTAL, got:\n%s", b)
	}
	if lines[1] != "BTCUSDT,1,1,50.0000,1,45.0000,0.10,-5.10,50.00,45.00" {
		t.Errorf("Unexpected BTC row %q", lines[1])
	}
	if lines[2] != "ETHUSDT,2,3,100.0000,3,108.0000,0.50,23.50,300.00,324.00" {
		t.Errorf("Unexpected ETH row %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "TOTAL,3,") || !strings.Contains(lines[3], ",18.40,") {
		t.Errorf("Unexpected TOTAL row %q", lines[3])
	}
}

func TestSummarizeAllWritesOneFilePerDay(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, time.UTC)

	paths, err := s.SummarizeAll(context.Background(), sample())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 day files, got %v", paths)
	}
	if filepath.Base(paths[0]) != "2024-06-03.csv" || filepath.Base(paths[1]) != "2024-06-04.csv" {
		t.Errorf("Unexpected paths %v", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "eod", "2024-06-04.csv")); err != nil {
		t.Errorf("Expected file under eod/: %v", err)
	}
}

func TestSummarizeDayWithoutTrades(t *testing.T) {
	s := New(t.TempDir(), nil)
	p, err := s.SummarizeDay(context.Background(), sample(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || p != "" {
		t.Errorf("Expected empty path and no error, got %q %v", p, err)
	}
}
