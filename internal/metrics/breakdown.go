package metrics

import (
	"strings"
	"time"

	"trade-report/internal/types"
)

// Dimension selects how trades are grouped for drill-down.
type Dimension string

const (
	BySymbol Dimension = "symbol"
	ByDay    Dimension = "day"
)

// Group is the report of one drill-down bucket.
type Group struct {
	Key    string       `json:"key"`
	Report types.Report `json:"report"`
}

// Breakdown recomputes the report per symbol or per entry day. Buckets are
// returned in order of first appearance in entry-date order. Every bucket
// starts from the same initial capital.
func Breakdown(trades []types.Trade, capital float64, dim Dimension) []Group {
	ordered := Compute(trades, capital).Trades

	var keys []string
	buckets := make(map[string][]types.Trade)
	for _, t := range ordered {
		k := key(t, dim)
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], t)
	}

	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, Group{Key: k, Report: Compute(buckets[k], capital)})
	}
	return out
}

func key(t types.Trade, dim Dimension) string {
	if dim == ByDay {
		return t.EntryDate().Format(labelLayout)
	}
	return t.Symbol
}

// Filter returns the trades keep accepts, preserving order.
func Filter(trades []types.Trade, keep func(types.Trade) bool) []types.Trade {
	var out []types.Trade
	for _, t := range trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// ForSymbol matches trades of one symbol, ignoring case.
func ForSymbol(symbol string) func(types.Trade) bool {
	return func(t types.Trade) bool { return strings.EqualFold(t.Symbol, symbol) }
}

// OnDay matches trades whose entry falls on day's calendar date in day's
// location.
func OnDay(day time.Time) func(types.Trade) bool {
	y, m, d := day.Date()
	return func(t types.Trade) bool {
		ty, tm, td := t.EntryDate().In(day.Location()).Date()
		return ty == y && tm == m && td == d
	}
}
