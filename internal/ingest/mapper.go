package ingest

import (
	"strings"
)

// Field is a canonical fill attribute a spreadsheet column can map to.
type Field string

const (
	FieldDate    Field = "date"
	FieldSymbol  Field = "symbol"
	FieldSide    Field = "side"
	FieldPrice   Field = "price"
	FieldQty     Field = "qty"
	FieldFee     Field = "fee"
	FieldAmount  Field = "amount"
	FieldRProfit Field = "rprofit"
	FieldFeeCoin Field = "fee_coin"
)

// Required lists the fields an import cannot do without.
var Required = []Field{FieldDate, FieldSymbol, FieldSide}

// keywords holds the English and Portuguese header fragments per field, in
// the order fields are tried for each header cell.
var keywords = []struct {
	field Field
	words []string
}{
	{FieldDate, []string{"date", "data"}},
	{FieldSymbol, []string{"symbol", "símbolo", "par", "ativo"}},
	{FieldSide, []string{"side", "operação", "tipo", "ação"}},
	{FieldPrice, []string{"price", "preço", "valor unit", "cotação"}},
	{FieldQty, []string{"quant", "qtd", "quantity", "quantidade", "executed"}},
	{FieldFee, []string{"fee", "taxa", "comissão", "commission"}},
	{FieldAmount, []string{"amount", "valor total", "notional", "total"}},
	{FieldRProfit, []string{"lucro", "profit", "pnl", "realiz"}},
	{FieldFeeCoin, []string{"fee coin", "fee currency", "moeda taxa"}},
}

// Mapping maps canonical fields to column indexes.
type Mapping map[Field]int

// MapColumns assigns each field the first header whose lowercased, trimmed
// text contains one of the field's keywords. A header may serve several
// fields; an assigned field is never overwritten by a later header.
func MapColumns(header []string) Mapping {
	m := make(Mapping)
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		if l == "" {
			continue
		}
		for _, kw := range keywords {
			if _, ok := m[kw.field]; ok {
				continue
			}
			for _, w := range kw.words {
				if strings.Contains(l, w) {
					m[kw.field] = i
					break
				}
			}
		}
	}
	return m
}

// Missing returns the fields among want that the mapping lacks, in order.
func (m Mapping) Missing(want ...Field) []Field {
	var out []Field
	for _, f := range want {
		if _, ok := m[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether f was mapped.
func (m Mapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// cell returns the trimmed cell for f, or "" when the field is unmapped or
// the row is short.
func (m Mapping) cell(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
