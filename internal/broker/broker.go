// Package broker renders broker tradebooks as canonical tables so they go
// through the same import path as uploaded files.
package broker

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-report/internal/sheet"
)

// Header is the column set every source emits. Each name matches exactly one
// ingest field.
var Header = []string{"Date", "Symbol", "Side", "Price", "Quantity", "Fee", "Amount"}

// Execution is one fill as reported by a broker.
type Execution struct {
	Time   time.Time
	Symbol string
	Side   string
	Price  decimal.Decimal
	Qty    decimal.Decimal
	Fee    decimal.Decimal
}

// Row formats e in Header order. Amount is price times quantity.
func (e Execution) Row() []string {
	return []string{
		e.Time.Format(time.RFC3339),
		e.Symbol,
		strings.ToUpper(strings.TrimSpace(e.Side)),
		e.Price.String(),
		e.Qty.Abs().String(),
		e.Fee.String(),
		e.Price.Mul(e.Qty.Abs()).String(),
	}
}

// Table orders executions by time and builds the table. An empty list still
// yields a header.
func Table(execs []Execution) *sheet.Table {
	sorted := append([]Execution(nil), execs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	t := &sheet.Table{Header: append([]string(nil), Header...)}
	for _, e := range sorted {
		t.Rows = append(t.Rows, e.Row())
	}
	return t
}
