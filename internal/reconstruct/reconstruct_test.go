package reconstruct

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"trade-report/internal/types"
)

var base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func fill(n int, symbol string, side types.Side, qty, amount, fee float64) types.Fill {
	return types.Fill{
		ID:     fmt.Sprintf("f%d", n),
		Date:   base.Add(time.Duration(n) * time.Minute),
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Amount: amount,
		Fee:    fee,
	}
}

func TestAnalyzeSingleRoundTrip(t *testing.T) {
	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0.1),
		fill(2, "X", types.SideSell, 1, 110, 0.1),
	}

	res := Analyze(context.Background(), fills, Options{})
	if len(res.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if math.Abs(tr.Result-9.8) > 1e-9 {
		t.Errorf("Expected result 9.8, got %f", tr.Result)
	}
	if math.Abs(tr.Fees-0.2) > 1e-9 {
		t.Errorf("Expected fees 0.2, got %f", tr.Fees)
	}
	if tr.TotalQty != 1 {
		t.Errorf("Expected total qty 1, got %f", tr.TotalQty)
	}
}

func TestAnalyzeMergesConsecutiveBuys(t *testing.T) {
	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideBuy, 1, 101, 0),
		fill(3, "X", types.SideSell, 2, 210, 0),
	}

	res := Analyze(context.Background(), fills, Options{})
	if len(res.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if len(tr.EntryFills) != 2 || len(tr.ExitFills) != 1 {
		t.Errorf("Expected 2 entry and 1 exit fills, got %d and %d", len(tr.EntryFills), len(tr.ExitFills))
	}
	if tr.Result != 9 {
		t.Errorf("Expected result 9, got %f", tr.Result)
	}
}

func TestAnalyzeUnbalancedLeavesFillsUnmatched(t *testing.T) {
	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideSell, 0.5, 55, 0),
	}

	res := Analyze(context.Background(), fills, Options{})
	if len(res.Trades) != 0 {
		t.Errorf("Expected no trades, got %d", len(res.Trades))
	}
	if len(res.Fills) != 2 {
		t.Errorf("Expected both fills returned for validation, got %d", len(res.Fills))
	}
}

func TestPairLegsSkipsOrphanAndContinues(t *testing.T) {
	// BUY 1 | SELL 0.5 | BUY 0.5 -> first leg is orphaned, then SELL 0.5 pairs with BUY 0.5.
	legs := GroupLegs([]types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideSell, 0.5, 55, 0),
		fill(3, "X", types.SideBuy, 0.5, 52, 0),
	})

	trades, orphans := PairLegs(context.Background(), "X", legs, DefaultTolerance)
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].EntryFills[0].ID != "f3" || trades[0].ExitFills[0].ID != "f2" {
		t.Errorf("Expected BUY leg as entry even when it comes second, got entry %s exit %s",
			trades[0].EntryFills[0].ID, trades[0].ExitFills[0].ID)
	}
	if trades[0].Result != 3 {
		t.Errorf("Expected result 3, got %f", trades[0].Result)
	}
	if len(orphans) != 1 || orphans[0].Fills[0].ID != "f1" {
		t.Errorf("Expected f1 leg orphaned, got %+v", orphans)
	}
}

func TestPairLegsIgnoresUnknownSides(t *testing.T) {
	legs := GroupLegs([]types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.Side("VENDA"), 1, 110, 0),
	})

	trades, orphans := PairLegs(context.Background(), "X", legs, DefaultTolerance)
	if len(trades) != 0 {
		t.Errorf("Expected unknown side to fail pairing, got %d trades", len(trades))
	}
	if len(orphans) != 2 {
		t.Errorf("Expected 2 orphan legs, got %d", len(orphans))
	}
}

func TestGroupLegsNeverEmpty(t *testing.T) {
	legs := GroupLegs([]types.Fill{
		fill(1, "X", types.SideBuy, 1, 0, 0),
		fill(2, "X", types.SideBuy, 1, 0, 0),
		fill(3, "X", types.SideSell, 1, 0, 0),
		fill(4, "X", types.SideBuy, 1, 0, 0),
	})

	if len(legs) != 3 {
		t.Fatalf("Expected 3 legs, got %d", len(legs))
	}
	for i, l := range legs {
		if len(l.Fills) == 0 {
			t.Errorf("Leg %d is empty", i)
		}
	}
	if GroupLegs(nil) != nil {
		t.Error("Expected no legs for no fills")
	}
}

func TestRealizedProfitTakesPrecedence(t *testing.T) {
	buy := fill(1, "X", types.SideBuy, 1, 100, 5)
	sell := fill(2, "X", types.SideSell, 1, 200, 5)
	sell.RProfit = 7.5

	tr := BuildTrade("X", []types.Fill{buy}, []types.Fill{sell})
	if tr.Result != 7.5 {
		t.Errorf("Expected rprofit sum 7.5, got %f", tr.Result)
	}

	buy.RProfit = -0.5
	tr = BuildTrade("X", []types.Fill{buy}, []types.Fill{sell})
	if tr.Result != 7 {
		t.Errorf("Expected rprofit sum 7, got %f", tr.Result)
	}
}

func TestToleranceIsConfigurable(t *testing.T) {
	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideSell, 1.001, 110, 0),
	}

	if res := Analyze(context.Background(), fills, Options{}); len(res.Trades) != 0 {
		t.Error("Expected default tolerance to reject 0.001 difference")
	}
	if res := Analyze(context.Background(), fills, Options{Tolerance: 0.01}); len(res.Trades) != 1 {
		t.Error("Expected wider tolerance to accept 0.001 difference")
	}
}

func TestAnalyzeSortsAndSkipsSingleFillSymbols(t *testing.T) {
	fills := []types.Fill{
		fill(5, "B", types.SideSell, 1, 10, 0),
		fill(4, "B", types.SideBuy, 1, 9, 0),
		fill(1, "A", types.SideBuy, 1, 10, 0),
		fill(6, "A", types.SideSell, 1, 12, 0),
		fill(2, "C", types.SideBuy, 1, 10, 0),
	}

	res := Analyze(context.Background(), fills, Options{})
	if len(res.Trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].Symbol != "A" || res.Trades[1].Symbol != "B" {
		t.Errorf("Expected trades ordered by entry date A then B, got %s then %s", res.Trades[0].Symbol, res.Trades[1].Symbol)
	}
	if len(res.Fills) != 5 {
		t.Errorf("Expected all 5 fills returned, got %d", len(res.Fills))
	}
	if fills[0].ID != "f5" {
		t.Error("Expected input slice to be left untouched")
	}
}

func TestAnalyzeExclusions(t *testing.T) {
	fills := []types.Fill{
		fill(1, "USDCUSDT", types.SideBuy, 1, 1, 0),
		fill(2, "USDCUSDT", types.SideSell, 1, 1, 0),
		fill(3, "BTCUSDT", types.SideBuy, 1, 100, 0),
		fill(4, "BTCUSDT", types.SideSell, 1, 110, 0),
	}

	res := Analyze(context.Background(), fills, Options{Exclusions: types.Exclusions{SymbolSubstrings: []string{"usdc"}}})
	if len(res.Trades) != 1 || res.Trades[0].Symbol != "BTCUSDT" {
		t.Errorf("Expected only the BTCUSDT trade, got %+v", res.Trades)
	}
	if res.Excluded != 2 {
		t.Errorf("Expected 2 excluded fills, got %d", res.Excluded)
	}
}

func TestDateRangeCoversWholeDays(t *testing.T) {
	// Bounds carry times of day; the whole calendar days must still be covered.
	r := &types.DateRange{
		Start: time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC),
	}
	start, end := r.Start, r.End

	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideSell, 1, 110, 0),
		{ID: "late", Date: time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC), Symbol: "X", Side: types.SideBuy, Qty: 1},
		{ID: "next", Date: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), Symbol: "X", Side: types.SideBuy, Qty: 1},
	}

	kept, excluded := Filter(fills, types.Exclusions{DateRange: r})
	if excluded != 3 {
		t.Errorf("Expected 3 fills excluded, got %d", excluded)
	}
	if len(kept) != 1 || kept[0].ID != "next" {
		t.Errorf("Expected only next-day fill kept, got %+v", kept)
	}
	if !r.Start.Equal(start) || !r.End.Equal(end) {
		t.Error("Expected date range bounds to be left unchanged")
	}

	// Filtering twice with the same range gives the same answer.
	if _, again := Filter(fills, types.Exclusions{DateRange: r}); again != excluded {
		t.Errorf("Expected repeat filter to exclude %d, got %d", excluded, again)
	}
}

func TestAnalyzeEverythingExcluded(t *testing.T) {
	fills := []types.Fill{
		fill(1, "X", types.SideBuy, 1, 100, 0),
		fill(2, "X", types.SideSell, 1, 110, 0),
	}
	r := &types.DateRange{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)}

	res := Analyze(context.Background(), fills, Options{Exclusions: types.Exclusions{DateRange: r}})
	if len(res.Trades) != 0 || len(res.Fills) != 0 {
		t.Errorf("Expected nothing left, got %d trades and %d fills", len(res.Trades), len(res.Fills))
	}
}

func TestAnalyzeConservationAndPartition(t *testing.T) {
	var fills []types.Fill
	sides := []types.Side{types.SideBuy, types.SideBuy, types.SideSell, types.SideSell, types.SideBuy, types.SideSell, types.SideSell}
	qtys := []float64{0.3, 0.2, 0.5, 0.1, 1, 0.6, 0.4}
	for i := range sides {
		fills = append(fills, fill(i+1, "ETH", sides[i], qtys[i], qtys[i]*100, 0.01))
	}

	res := Analyze(context.Background(), fills, Options{})
	if len(res.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(res.Trades))
	}

	seen := map[string]int{}
	for _, tr := range res.Trades {
		if !Balanced(types.SumQty(tr.EntryFills), types.SumQty(tr.ExitFills), DefaultTolerance) {
			t.Errorf("Trade %s is not balanced", tr.ID)
		}
		for _, f := range tr.Fills() {
			seen[f.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Fill %s appears in %d trades", id, n)
		}
	}
}

func TestDuplicateFillsAreDropped(t *testing.T) {
	a := fill(1, "X", types.SideBuy, 1, 100, 0)
	b := fill(2, "X", types.SideSell, 1, 110, 0)

	res := Analyze(context.Background(), []types.Fill{a, a, b}, Options{})
	if len(res.Fills) != 2 {
		t.Errorf("Expected 2 unique fills, got %d", len(res.Fills))
	}
	if len(res.Trades) != 1 {
		t.Errorf("Expected 1 trade, got %d", len(res.Trades))
	}
}
