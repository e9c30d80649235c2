// Package validate lets a user correct automatic pairing by hand: group
// unmatched fills into a new trade or split fills out of existing trades.
// Workset operations are pure; they return a new workset and leave the
// receiver untouched, so a rejected operation never changes state.
package validate

import (
	"sort"

	"trade-report/internal/reconstruct"
	"trade-report/internal/types"
)

// Workset is the editable state of one validation: every fill and the
// trades currently built from them.
type Workset struct {
	Fills     []types.Fill  `json:"fills"`
	Trades    []types.Trade `json:"trades"`
	Tolerance float64       `json:"tolerance"`
}

// NewWorkset starts a workset from an analysis result.
func NewWorkset(res reconstruct.Result, tol float64) Workset {
	if tol <= 0 {
		tol = reconstruct.DefaultTolerance
	}
	return Workset{
		Fills:     append([]types.Fill(nil), res.Fills...),
		Trades:    cloneTrades(res.Trades),
		Tolerance: tol,
	}
}

// Partition splits the fills into grouped and ungrouped, preserving fill
// order. TradeOf maps every grouped fill ID to its trade ID.
type Partition struct {
	Grouped   []types.Fill
	Ungrouped []types.Fill
	TradeOf   map[string]string
}

func (w Workset) Partition() Partition {
	p := Partition{TradeOf: w.tradeIndex()}
	for _, f := range w.Fills {
		if _, ok := p.TradeOf[f.ID]; ok {
			p.Grouped = append(p.Grouped, f)
		} else {
			p.Ungrouped = append(p.Ungrouped, f)
		}
	}
	return p
}

// Check is the live feedback for a candidate selection.
type Check struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
	BuyQty  float64  `json:"buy_qty"`
	SellQty float64  `json:"sell_qty"`
	Delta   float64  `json:"delta"`
	OK      bool     `json:"ok"`
	Reason  string   `json:"reason,omitempty"`
}

// Balance reports whether the selected ungrouped fills could form a trade,
// and why not.
func (w Workset) Balance(ids []string) Check {
	fills, err := w.selectUngrouped(ids)
	c := Check{Count: len(ids)}
	if err != nil {
		c.Reason = err.Error()
		return c
	}

	seen := map[string]bool{}
	for _, f := range fills {
		if !seen[f.Symbol] {
			seen[f.Symbol] = true
			c.Symbols = append(c.Symbols, f.Symbol)
		}
		switch f.Side {
		case types.SideBuy:
			c.BuyQty += f.Qty
		case types.SideSell:
			c.SellQty += f.Qty
		}
	}
	c.Delta = c.BuyQty - c.SellQty

	if _, _, err := checkSelection(fills, w.Tolerance); err != nil {
		c.Reason = err.Error()
		return c
	}
	c.OK = true
	return c
}

// CreateGroup builds a trade from the selected ungrouped fills. BUY fills
// become the entry and SELL fills the exit, each in fill order.
func (w Workset) CreateGroup(ids []string) (Workset, types.Trade, error) {
	fills, err := w.selectUngrouped(ids)
	if err != nil {
		return w, types.Trade{}, err
	}
	buys, sells, err := checkSelection(fills, w.Tolerance)
	if err != nil {
		return w, types.Trade{}, err
	}

	trade := reconstruct.BuildTrade(fills[0].Symbol, buys, sells)
	next := w.clone()
	next.Trades = append(next.Trades, trade)
	return next, trade, nil
}

// Ungroup removes the selected fills from the trades holding them. A trade
// left without entry or exit fills is deleted; any other touched trade is
// rebuilt from its remaining fills. It returns the IDs of deleted trades.
func (w Workset) Ungroup(ids []string) (Workset, []string, error) {
	if len(ids) == 0 {
		return w, nil, ErrTooFewFills
	}
	index := w.tradeIndex()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			if w.fill(id) == nil {
				return w, nil, fillError(ErrUnknownFill, id)
			}
			return w, nil, fillError(ErrNotGrouped, id)
		}
		drop[id] = true
	}

	next := w.clone()
	next.Trades = next.Trades[:0]
	var deleted []string
	for _, t := range w.Trades {
		entry := without(t.EntryFills, drop)
		exit := without(t.ExitFills, drop)
		switch {
		case len(entry) == len(t.EntryFills) && len(exit) == len(t.ExitFills):
			next.Trades = append(next.Trades, t)
		case len(entry) == 0 || len(exit) == 0:
			deleted = append(deleted, t.ID)
		default:
			next.Trades = append(next.Trades, reconstruct.BuildTrade(t.Symbol, entry, exit))
		}
	}
	return next, deleted, nil
}

// Unbalanced returns the trades whose sides no longer balance, which only a
// partial ungroup can produce.
func (w Workset) Unbalanced() []types.Trade {
	var out []types.Trade
	for _, t := range w.Trades {
		if !reconstruct.Balanced(types.SumQty(t.EntryFills), types.SumQty(t.ExitFills), w.Tolerance) {
			out = append(out, t)
		}
	}
	return out
}

// SortedTrades returns a copy of the trades ordered by entry date.
func (w Workset) SortedTrades() []types.Trade {
	out := cloneTrades(w.Trades)
	reconstruct.SortTrades(out)
	return out
}

// checkSelection validates a manual group and splits it by side.
func checkSelection(fills []types.Fill, tol float64) (buys, sells []types.Fill, err error) {
	if len(fills) < 2 {
		return nil, nil, ErrTooFewFills
	}
	for _, f := range fills[1:] {
		if f.Symbol != fills[0].Symbol {
			return nil, nil, ErrSymbolMismatch
		}
	}
	for _, f := range fills {
		switch f.Side {
		case types.SideBuy:
			buys = append(buys, f)
		case types.SideSell:
			sells = append(sells, f)
		default:
			return nil, nil, fillError(ErrUnsupportedSide, f.ID)
		}
	}
	if len(buys) == 0 || len(sells) == 0 {
		return nil, nil, ErrMissingSide
	}
	buyQty, sellQty := types.SumQty(buys), types.SumQty(sells)
	if !reconstruct.Balanced(buyQty, sellQty, tol) {
		return nil, nil, &ImbalanceError{BuyQty: buyQty, SellQty: sellQty}
	}
	return buys, sells, nil
}

// selectUngrouped resolves IDs to ungrouped fills in workset order.
func (w Workset) selectUngrouped(ids []string) ([]types.Fill, error) {
	index := w.tradeIndex()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if w.fill(id) == nil {
			return nil, fillError(ErrUnknownFill, id)
		}
		if _, ok := index[id]; ok {
			return nil, fillError(ErrAlreadyGrouped, id)
		}
		want[id] = true
	}

	var out []types.Fill
	for _, f := range w.Fills {
		if want[f.ID] {
			out = append(out, f)
			delete(want, f.ID)
		}
	}
	return out, nil
}

func (w Workset) tradeIndex() map[string]string {
	index := make(map[string]string)
	for _, t := range w.Trades {
		for _, f := range t.Fills() {
			index[f.ID] = t.ID
		}
	}
	return index
}

func (w Workset) fill(id string) *types.Fill {
	for i := range w.Fills {
		if w.Fills[i].ID == id {
			return &w.Fills[i]
		}
	}
	return nil
}

func (w Workset) clone() Workset {
	return Workset{
		Fills:     append([]types.Fill(nil), w.Fills...),
		Trades:    cloneTrades(w.Trades),
		Tolerance: w.Tolerance,
	}
}

func cloneTrades(trades []types.Trade) []types.Trade {
	out := make([]types.Trade, len(trades))
	copy(out, trades)
	return out
}

func without(fills []types.Fill, drop map[string]bool) []types.Fill {
	var out []types.Fill
	for _, f := range fills {
		if !drop[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// Symbols lists the distinct symbols of the workset's fills, sorted.
func (w Workset) Symbols() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range w.Fills {
		if !seen[f.Symbol] {
			seen[f.Symbol] = true
			out = append(out, f.Symbol)
		}
	}
	sort.Strings(out)
	return out
}
