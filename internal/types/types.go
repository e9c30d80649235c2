package types

import (
	"strings"
	"time"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one the pairer can match.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Fill is one executed order line. Fills are created once by the normalizer
// and never mutated afterwards.
type Fill struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Symbol  string    `json:"symbol"`
	Side    Side      `json:"side"`
	Price   float64   `json:"price"`
	Qty     float64   `json:"qty"`
	Fee     float64   `json:"fee"`
	Amount  float64   `json:"amount"`
	RProfit float64   `json:"rprofit"`
	FeeCoin string    `json:"fee_coin,omitempty"`
	Raw     []string  `json:"raw,omitempty"`
}

// Leg is a maximal run of consecutive same-side fills for one symbol.
type Leg struct {
	Side  Side   `json:"side"`
	Fills []Fill `json:"fills"`
}

func (l Leg) Qty() float64 { return SumQty(l.Fills) }

// Trade is a reconstructed round trip. EntryFills always holds the BUY side
// and ExitFills the SELL side, whichever came first.
type Trade struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	EntryFills []Fill  `json:"entry_fills"`
	ExitFills  []Fill  `json:"exit_fills"`
	TotalQty   float64 `json:"total_qty"`
	Fees       float64 `json:"fees"`
	Result     float64 `json:"result"`
}

// EntryDate is the date of the first entry fill, used for chronological ordering.
func (t Trade) EntryDate() time.Time {
	if len(t.EntryFills) == 0 {
		return time.Time{}
	}
	return t.EntryFills[0].Date
}

// Fills returns entry fills followed by exit fills.
func (t Trade) Fills() []Fill {
	all := make([]Fill, 0, len(t.EntryFills)+len(t.ExitFills))
	all = append(all, t.EntryFills...)
	return append(all, t.ExitFills...)
}

func SumQty(fills []Fill) float64 {
	var s float64
	for _, f := range fills {
		s += f.Qty
	}
	return s
}

func SumFee(fills []Fill) float64 {
	var s float64
	for _, f := range fills {
		s += f.Fee
	}
	return s
}

func SumAmount(fills []Fill) float64 {
	var s float64
	for _, f := range fills {
		s += f.Amount
	}
	return s
}

func SumRProfit(fills []Fill) float64 {
	var s float64
	for _, f := range fills {
		s += f.RProfit
	}
	return s
}

// CapitalPoint is one step of the capital evolution series.
type CapitalPoint struct {
	Label   string  `json:"label"`
	Capital float64 `json:"capital"`
}

// Summary holds the report figures formatted for display (two decimals).
type Summary struct {
	WinRate      string `json:"win_rate"`
	Gains        string `json:"gains"`
	Losses       string `json:"losses"`
	GrossGains   string `json:"gross_gains"`
	GrossLosses  string `json:"gross_losses"`
	Fees         string `json:"fees"`
	Net          string `json:"net"`
	Return       string `json:"return"`
	PayoffRatio  string `json:"payoff_ratio"`
	ProfitFactor string `json:"profit_factor"`
	MaxDrawdown  string `json:"max_drawdown"`
}

// Report is the derived performance summary. Numeric fields keep full
// precision; Summary carries the rounded display strings.
type Report struct {
	InitialCapital   float64        `json:"initial_capital"`
	Total            int            `json:"total"`
	Wins             int            `json:"wins"`
	Losses           int            `json:"losses"`
	Neutral          int            `json:"neutral"`
	WinRate          float64        `json:"win_rate"`
	Gains            float64        `json:"gains"`
	LossesTotal      float64        `json:"losses_total"`
	GrossGains       float64        `json:"gross_gains"`
	GrossLosses      float64        `json:"gross_losses"`
	Fees             float64        `json:"fees"`
	Net              float64        `json:"net"`
	Return           float64        `json:"return"`
	PayoffRatio      float64        `json:"payoff_ratio"`
	ProfitFactor     float64        `json:"profit_factor"`
	MaxDrawdown      float64        `json:"max_drawdown"`
	Summary          Summary        `json:"summary"`
	Trades           []Trade        `json:"trades"`
	CapitalEvolution []CapitalPoint `json:"capital_evolution"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Exclusions selects fills to leave out of an analysis pass.
type Exclusions struct {
	SymbolSubstrings []string   `json:"excluded_symbol_substrings"`
	DateRange        *DateRange `json:"excluded_date_range,omitempty"`
}

// ExcludesSymbol compares case-insensitively; empty substrings never match.
func (e Exclusions) ExcludesSymbol(symbol string) bool {
	lower := strings.ToLower(symbol)
	for _, sub := range e.SymbolSubstrings {
		sub = strings.ToLower(strings.TrimSpace(sub))
		if sub == "" {
			continue
		}
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Insight is one finding returned by the insight service.
type Insight struct {
	Title          string `json:"title"`
	Evidence       string `json:"evidence"`
	Recommendation string `json:"recommendation"`
}

// Correction is one manual validator action, as written to the journal.
type Correction struct {
	Time    string         `json:"time"`
	Session string         `json:"session"`
	Action  string         `json:"action"`
	Symbol  string         `json:"symbol,omitempty"`
	FillIDs []string       `json:"fill_ids,omitempty"`
	TradeID string         `json:"trade_id,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}
