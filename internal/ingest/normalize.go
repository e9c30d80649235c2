package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"trade-report/internal/types"
)

// Zone-less layouts tried in order. Year-first comes before day-first so an
// ISO date is never read as DD/MM.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700 MST",
}

// Normalizer turns raw rows into fills. It is safe for concurrent use.
type Normalizer struct {
	mapping      Mapping
	loc          *time.Location
	deriveAmount bool
	namespace    uuid.UUID
}

// NewNormalizer builds a normalizer for one source. source scopes the fill
// IDs so two uploads of different files do not collide.
func NewNormalizer(m Mapping, opts Options) *Normalizer {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{
		mapping:      m,
		loc:          loc,
		deriveAmount: opts.DeriveAmount && !m.Has(FieldAmount),
		namespace:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("trade-report:"+opts.Source)),
	}
}

// Normalize converts one row. Unparsable numbers become 0 and an unparsable
// date leaves Date as the zero time. The ID depends only on the source,
// the row index and the raw cells.
func (n *Normalizer) Normalize(row []string, index int) types.Fill {
	raw := append([]string(nil), row...)

	f := types.Fill{
		ID:      FillID(n.namespace, index, raw),
		Date:    parseDate(n.mapping.cell(row, FieldDate), n.loc),
		Symbol:  n.mapping.cell(row, FieldSymbol),
		Side:    types.Side(strings.ToUpper(n.mapping.cell(row, FieldSide))),
		Price:   parseNumber(n.mapping.cell(row, FieldPrice)),
		Qty:     math.Abs(parseNumber(n.mapping.cell(row, FieldQty))),
		Fee:     parseNumber(n.mapping.cell(row, FieldFee)),
		Amount:  parseNumber(n.mapping.cell(row, FieldAmount)),
		RProfit: parseNumber(n.mapping.cell(row, FieldRProfit)),
		FeeCoin: n.mapping.cell(row, FieldFeeCoin),
		Raw:     raw,
	}
	if n.deriveAmount {
		f.Amount = f.Price * f.Qty
	}
	return f
}

// FillID derives a stable identifier from a row's position and content.
func FillID(namespace uuid.UUID, index int, raw []string) string {
	key := fmt.Sprintf("%d|%s", index, strings.Join(raw, "\x1f"))
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// parseNumber reads the longest numeric prefix of s after swapping the
// first comma for a dot, so "1,5", "0.01BTC" and "12 USDT" all parse.
// Anything without a numeric prefix is 0.
func parseNumber(s string) float64 {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	if s == "" {
		return 0
	}

	end := numericPrefix(s)
	for end > 0 {
		v, err := strconv.ParseFloat(s[:end], 64)
		if err == nil {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return 0
			}
			return v
		}
		end--
	}
	return 0
}

// numericPrefix returns the length of the leading run of characters that
// can belong to a decimal float literal.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	seenDot, seenExp := false, false
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && !seenExp && i > 0:
			seenExp = true
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				i++
			}
		default:
			return i
		}
		i++
	}
	return i
}

// parseDate accepts textual dates, Excel serial numbers and epoch
// timestamps (seconds or milliseconds). Zone-less values are read in loc.
func parseDate(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return time.Time{}
	}
	switch {
	case v >= 1e11:
		return time.UnixMilli(int64(v)).In(loc)
	case v >= 1e9:
		return time.Unix(int64(v), 0).In(loc)
	default:
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return time.Time{}
		}
		t = t.Round(time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
}
