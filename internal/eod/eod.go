// Package eod writes end-of-day CSV summaries of reconstructed trades, one
// row per symbol plus a TOTAL row.
package eod

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"trade-report/internal/interfaces"
	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

const dayLayout = "2006-01-02"

// Header is the column set of a day summary.
var Header = []string{"symbol", "trades", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "fees", "result", "gross_buy_value", "gross_sell_value"}

// aggRow holds one symbol's totals for the day.
type aggRow struct {
	Symbol    string
	Trades    int
	BuyQty    float64
	BuyValue  float64
	SellQty   float64
	SellValue float64
	Fees      float64
	Result    float64
}

type Summarizer struct {
	dir string
	loc *time.Location
}

var _ interfaces.EodSummarizer = (*Summarizer)(nil)

// New writes summaries under dir/eod. Days are cut in loc; nil means UTC.
func New(dir string, loc *time.Location) *Summarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Summarizer{dir: dir, loc: loc}
}

func (s *Summarizer) csvPath(day time.Time) string {
	return filepath.Join(s.dir, "eod", day.In(s.loc).Format(dayLayout)+".csv")
}

func (s *Summarizer) SummarizeDay(ctx context.Context, report types.Report, day time.Time) (string, error) {
	day = day.In(s.loc)
	trades := metrics.Filter(report.Trades, metrics.OnDay(day))
	if len(trades) == 0 {
		return "", nil
	}

	b, err := Render(trades)
	if err != nil {
		return "", err
	}
	outPath := s.csvPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *Summarizer) SummarizeAll(ctx context.Context, report types.Report) ([]string, error) {
	var paths []string
	for _, day := range Days(report.Trades, s.loc) {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		p, err := s.SummarizeDay(ctx, report, day)
		if err != nil {
			return paths, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Days lists the distinct entry days of trades in loc, oldest first.
func Days(trades []types.Trade, loc *time.Location) []time.Time {
	seen := map[string]bool{}
	var days []time.Time
	for _, t := range trades {
		d := t.EntryDate().In(loc)
		k := d.Format(dayLayout)
		if seen[k] {
			continue
		}
		seen[k] = true
		days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Render aggregates trades by symbol and returns the CSV bytes.
func Render(trades []types.Trade) ([]byte, error) {
	aggs := map[string]*aggRow{}
	for _, t := range trades {
		row := aggs[t.Symbol]
		if row == nil {
			row = &aggRow{Symbol: t.Symbol}
			aggs[t.Symbol] = row
		}
		row.Trades++
		row.BuyQty += types.SumQty(t.EntryFills)
		row.BuyValue += notional(t.EntryFills)
		row.SellQty += types.SumQty(t.ExitFills)
		row.SellValue += notional(t.ExitFills)
		row.Fees += t.Fees
		row.Result += t.Result
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}

	var total aggRow
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write([]string{
			r.Symbol,
			strconv.Itoa(r.Trades),
			qty(r.BuyQty), fmt.Sprintf("%.4f", avg(r.BuyValue, r.BuyQty)),
			qty(r.SellQty), fmt.Sprintf("%.4f", avg(r.SellValue, r.SellQty)),
			metrics.Format(r.Fees), metrics.Format(r.Result),
			metrics.Format(r.BuyValue), metrics.Format(r.SellValue),
		}); err != nil {
			return nil, err
		}
		total.Trades += r.Trades
		total.Fees += r.Fees
		total.Result += r.Result
		total.BuyValue += r.BuyValue
		total.SellValue += r.SellValue
	}
	if err := w.Write([]string{
		"TOTAL", strconv.Itoa(total.Trades), "", "", "", "",
		metrics.Format(total.Fees), metrics.Format(total.Result),
		metrics.Format(total.BuyValue), metrics.Format(total.SellValue),
	}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// notional prefers the exchange amount and falls back to price times qty.
func notional(fills []types.Fill) float64 {
	var v float64
	for _, f := range fills {
		if f.Amount != 0 {
			v += f.Amount
		} else {
			v += f.Price * f.Qty
		}
	}
	return v
}

func avg(value, qty float64) float64 {
	if qty == 0 {
		return 0
	}
	return value / qty
}

func qty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
