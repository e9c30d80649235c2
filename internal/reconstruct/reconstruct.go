// Package reconstruct rebuilds round-trip trades from individual fills.
//
// Fills of each symbol are sorted by date and split into legs, maximal runs
// of same-side fills. Legs are then paired greedily from the front: the
// first two legs form a trade when one is a BUY leg, the other a SELL leg
// and their quantities balance; otherwise the first leg is left unmatched
// and pairing resumes with the next two. Non-adjacent legs are never
// matched. Such leftovers are meant to be grouped by hand with the
// validate package.
package reconstruct

import (
	"context"
	"sort"
	"time"

	"trade-report/internal/logger"
	"trade-report/internal/types"
)

// Options controls one analysis pass.
type Options struct {
	Tolerance  float64
	Exclusions types.Exclusions
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// Result holds the accepted trades and every fill that survived filtering,
// matched or not.
type Result struct {
	Trades   []types.Trade
	Fills    []types.Fill
	Excluded int
}

// Analyze filters, groups and pairs fills into trades. Symbols are processed
// in order of first appearance and the trades are returned ordered by entry
// date. The input slice is not modified.
func Analyze(ctx context.Context, fills []types.Fill, opts Options) Result {
	op := logger.StartOperation(ctx, "reconstruct.analyze", "fills", len(fills))
	ctx = op.GetContext()

	kept, excluded := Filter(dedupe(fills), opts.Exclusions)
	kept = SortFills(kept)

	var order []string
	bySymbol := make(map[string][]types.Fill)
	for _, f := range kept {
		if _, ok := bySymbol[f.Symbol]; !ok {
			order = append(order, f.Symbol)
		}
		bySymbol[f.Symbol] = append(bySymbol[f.Symbol], f)
	}

	tol := opts.tolerance()
	var trades []types.Trade
	for _, symbol := range order {
		symbolFills := bySymbol[symbol]
		if len(symbolFills) < 2 {
			continue
		}
		paired, _ := PairLegs(ctx, symbol, GroupLegs(symbolFills), tol)
		trades = append(trades, paired...)
	}
	SortTrades(trades)

	op.End("trades", len(trades), "kept", len(kept), "excluded", excluded)
	return Result{Trades: trades, Fills: kept, Excluded: excluded}
}

// GroupLegs splits date-sorted fills of one symbol into legs. A new leg
// starts whenever the side changes.
func GroupLegs(fills []types.Fill) []types.Leg {
	var legs []types.Leg
	for _, f := range fills {
		if n := len(legs); n > 0 && legs[n-1].Side == f.Side {
			legs[n-1].Fills = append(legs[n-1].Fills, f)
			continue
		}
		legs = append(legs, types.Leg{Side: f.Side, Fills: []types.Fill{f}})
	}
	return legs
}

// PairLegs consumes legs from the front. It returns the trades formed and
// the legs left unmatched, in their original order.
func PairLegs(ctx context.Context, symbol string, legs []types.Leg, tol float64) ([]types.Trade, []types.Leg) {
	var (
		trades  []types.Trade
		orphans []types.Leg
	)

	for len(legs) >= 2 {
		a, b := legs[0], legs[1]
		buy, sell, ok := opposite(a, b)
		if ok && Balanced(buy.Qty(), sell.Qty(), tol) {
			trade := BuildTrade(symbol, buy.Fills, sell.Fills)
			trades = append(trades, trade)
			logger.Pairing(ctx, symbol, "paired", buy.Qty(), sell.Qty(), "trade_id", trade.ID, "result", trade.Result)
			legs = legs[2:]
			continue
		}
		logger.Pairing(ctx, symbol, "orphaned", sideQty(a, types.SideBuy), sideQty(a, types.SideSell), "side", string(a.Side), "fills", len(a.Fills))
		orphans = append(orphans, a)
		legs = legs[1:]
	}
	return trades, append(orphans, legs...)
}

// opposite returns the BUY and SELL leg of a pair, if it is one.
func opposite(a, b types.Leg) (buy, sell types.Leg, ok bool) {
	switch {
	case a.Side == types.SideBuy && b.Side == types.SideSell:
		return a, b, true
	case a.Side == types.SideSell && b.Side == types.SideBuy:
		return b, a, true
	}
	return types.Leg{}, types.Leg{}, false
}

func sideQty(l types.Leg, side types.Side) float64 {
	if l.Side != side {
		return 0
	}
	return l.Qty()
}

// Filter drops fills without a valid date and fills matched by the
// exclusions. It returns the kept fills and the number excluded.
func Filter(fills []types.Fill, ex types.Exclusions) ([]types.Fill, int) {
	var from, until time.Time
	if ex.DateRange != nil {
		from, until = dayBounds(*ex.DateRange)
	}

	kept := make([]types.Fill, 0, len(fills))
	excluded := 0
	for _, f := range fills {
		if f.Date.IsZero() || ex.ExcludesSymbol(f.Symbol) {
			excluded++
			continue
		}
		if ex.DateRange != nil && !f.Date.Before(from) && f.Date.Before(until) {
			excluded++
			continue
		}
		kept = append(kept, f)
	}
	return kept, excluded
}

// dayBounds widens a range to whole calendar days in the bounds' own
// locations: [start 00:00, day after end 00:00).
func dayBounds(r types.DateRange) (time.Time, time.Time) {
	sy, sm, sd := r.Start.Date()
	ey, em, ed := r.End.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, r.Start.Location()),
		time.Date(ey, em, ed+1, 0, 0, 0, 0, r.End.Location())
}

// SortFills returns a copy of fills ordered by date. Ties keep input order.
func SortFills(fills []types.Fill) []types.Fill {
	out := append([]types.Fill(nil), fills...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SortTrades orders trades by entry date in place. Ties keep input order.
func SortTrades(trades []types.Trade) {
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].EntryDate().Before(trades[j].EntryDate()) })
}

func dedupe(fills []types.Fill) []types.Fill {
	seen := make(map[string]struct{}, len(fills))
	out := make([]types.Fill, 0, len(fills))
	for _, f := range fills {
		if _, ok := seen[f.ID]; ok && f.ID != "" {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}
