package metrics

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"trade-report/internal/types"
)

var day0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func trade(id, symbol string, offsetDays int, result, fees float64) types.Trade {
	d := day0.AddDate(0, 0, offsetDays)
	return types.Trade{
		ID:         id,
		Symbol:     symbol,
		EntryFills: []types.Fill{{ID: id + "-in", Date: d, Symbol: symbol, Side: types.SideBuy, Qty: 1}},
		ExitFills:  []types.Fill{{ID: id + "-out", Date: d.Add(time.Hour), Symbol: symbol, Side: types.SideSell, Qty: 1}},
		TotalQty:   1,
		Fees:       fees,
		Result:     result,
	}
}

func TestComputeSingleWin(t *testing.T) {
	r := Compute([]types.Trade{trade("a", "X", 0, 110-100-0.2, 0.2)}, 1000)

	if r.Total != 1 || r.Wins != 1 {
		t.Errorf("Expected 1 winning trade, got total %d wins %d", r.Total, r.Wins)
	}
	if r.Summary.WinRate != "100.00" {
		t.Errorf("Expected win rate 100.00, got %s", r.Summary.WinRate)
	}
	if r.Summary.Return != "0.98" {
		t.Errorf("Expected return 0.98, got %s", r.Summary.Return)
	}
	if r.Summary.Net != "9.80" {
		t.Errorf("Expected net 9.80, got %s", r.Summary.Net)
	}
	if r.Summary.GrossGains != "10.00" {
		t.Errorf("Expected gross gains 10.00, got %s", r.Summary.GrossGains)
	}
	if r.PayoffRatio != 0 || r.ProfitFactor != 0 {
		t.Errorf("Expected payoff and profit factor 0 without losses, got %f %f", r.PayoffRatio, r.ProfitFactor)
	}
}

func TestComputeCapitalEvolutionAndDrawdown(t *testing.T) {
	trades := []types.Trade{
		trade("a", "X", 0, 10, 0),
		trade("b", "Y", 1, -5, 0),
		trade("c", "X", 2, 3, 0),
	}
	r := Compute(trades, 100)

	want := []float64{100, 110, 105, 108}
	if len(r.CapitalEvolution) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(r.CapitalEvolution))
	}
	for i, w := range want {
		if r.CapitalEvolution[i].Capital != w {
			t.Errorf("Point %d: expected %f, got %f", i, w, r.CapitalEvolution[i].Capital)
		}
	}
	if r.CapitalEvolution[0].Label != StartLabel {
		t.Errorf("Expected first label %q, got %q", StartLabel, r.CapitalEvolution[0].Label)
	}
	if r.CapitalEvolution[1].Label != "2024-05-01" {
		t.Errorf("Expected date label, got %q", r.CapitalEvolution[1].Label)
	}

	wantDD := (110.0 - 105.0) / 110.0 * 100
	if math.Abs(r.MaxDrawdown-wantDD) > 1e-12 {
		t.Errorf("Expected max drawdown %f, got %f", wantDD, r.MaxDrawdown)
	}
	if r.Summary.MaxDrawdown != "4.55" {
		t.Errorf("Expected max drawdown 4.55, got %s", r.Summary.MaxDrawdown)
	}

	// avg win 6.5 / avg loss 5
	if r.Summary.PayoffRatio != "1.30" {
		t.Errorf("Expected payoff 1.30, got %s", r.Summary.PayoffRatio)
	}
	if r.Summary.ProfitFactor != "2.60" {
		t.Errorf("Expected profit factor 2.60, got %s", r.Summary.ProfitFactor)
	}
	if r.Summary.WinRate != "66.67" {
		t.Errorf("Expected win rate 66.67, got %s", r.Summary.WinRate)
	}
}

func TestComputeNoTrades(t *testing.T) {
	r := Compute(nil, 1000)

	if r.Total != 0 {
		t.Errorf("Expected 0 trades, got %d", r.Total)
	}
	if r.Summary.WinRate != "0.00" || r.Summary.Return != "0.00" {
		t.Errorf("Expected 0.00 win rate and return, got %s and %s", r.Summary.WinRate, r.Summary.Return)
	}
	if len(r.CapitalEvolution) != 1 || r.CapitalEvolution[0].Capital != 1000 {
		t.Errorf("Expected only the start point, got %+v", r.CapitalEvolution)
	}
}

func TestComputeZeroCapital(t *testing.T) {
	r := Compute([]types.Trade{trade("a", "X", 0, 5, 0)}, 0)
	if r.Summary.Return != "0.00" {
		t.Errorf("Expected return 0.00 with zero capital, got %s", r.Summary.Return)
	}
	if r.MaxDrawdown != 0 {
		t.Errorf("Expected no drawdown, got %f", r.MaxDrawdown)
	}
}

func TestComputeOrdersChronologically(t *testing.T) {
	trades := []types.Trade{
		trade("late", "X", 3, -2, 0),
		trade("early", "X", 0, 5, 0),
	}
	r := Compute(trades, 10)

	if r.Trades[0].ID != "early" {
		t.Errorf("Expected early trade first, got %s", r.Trades[0].ID)
	}
	if trades[0].ID != "late" {
		t.Error("Expected input slice to be left untouched")
	}
	if r.CapitalEvolution[1].Capital != 15 || r.CapitalEvolution[2].Capital != 13 {
		t.Errorf("Unexpected evolution %+v", r.CapitalEvolution)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	trades := []types.Trade{
		trade("a", "X", 0, 1.234, 0.1),
		trade("b", "Y", 1, -0.5, 0.05),
		trade("c", "X", 1, 0, 0.01),
	}

	first := Compute(trades, 50)
	second := Compute(trades, 50)
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical reports for identical input")
	}
	if first.Neutral != 1 {
		t.Errorf("Expected 1 neutral trade, got %d", first.Neutral)
	}
}

func TestDrawdownPeakNeverDecreases(t *testing.T) {
	points := []types.CapitalPoint{
		{Label: StartLabel, Capital: 100},
		{Capital: 120}, {Capital: 90}, {Capital: 130}, {Capital: 60}, {Capital: 140},
	}

	series := DrawdownSeries(points)
	for i := 1; i < len(series); i++ {
		if series[i].Peak < series[i-1].Peak {
			t.Errorf("Peak decreased at %d: %f -> %f", i, series[i-1].Peak, series[i].Peak)
		}
	}
	wantMax := (130.0 - 60.0) / 130.0 * 100
	if got := MaxDrawdown(points); math.Abs(got-wantMax) > 1e-12 {
		t.Errorf("Expected max drawdown %f, got %f", wantMax, got)
	}
}

func TestDrawdownNonPositivePeak(t *testing.T) {
	points := []types.CapitalPoint{{Capital: 0}, {Capital: -5}, {Capital: -10}}
	if got := MaxDrawdown(points); got != 0 {
		t.Errorf("Expected 0 drawdown with non-positive peak, got %f", got)
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	r := Compute([]types.Trade{
		trade("a", "X", 0, 10.123456789, 0.3),
		trade("b", "Y", 1, -4.1, 0.2),
	}, 1000)

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var back types.Report
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r, back) {
		t.Errorf("Expected identical report after round trip\nwant %+v\ngot  %+v", r, back)
	}
}

func TestBreakdown(t *testing.T) {
	trades := []types.Trade{
		trade("a", "X", 0, 10, 0),
		trade("b", "Y", 0, -5, 0),
		trade("c", "X", 1, 3, 0),
	}

	bySymbol := Breakdown(trades, 100, BySymbol)
	if len(bySymbol) != 2 || bySymbol[0].Key != "X" || bySymbol[1].Key != "Y" {
		t.Fatalf("Unexpected symbol groups %+v", bySymbol)
	}
	if bySymbol[0].Report.Net != 13 || bySymbol[0].Report.Total != 2 {
		t.Errorf("Expected X net 13 over 2 trades, got %f over %d", bySymbol[0].Report.Net, bySymbol[0].Report.Total)
	}

	byDay := Breakdown(trades, 100, ByDay)
	if len(byDay) != 2 || byDay[0].Key != "2024-05-01" {
		t.Fatalf("Unexpected day groups %+v", byDay)
	}
	if byDay[0].Report.Summary.WinRate != "50.00" {
		t.Errorf("Expected day 1 win rate 50.00, got %s", byDay[0].Report.Summary.WinRate)
	}
}

func TestFilterHelpers(t *testing.T) {
	trades := []types.Trade{
		trade("a", "btcusdt", 0, 1, 0),
		trade("b", "ETHUSDT", 0, 1, 0),
		trade("c", "BTCUSDT", 2, 1, 0),
	}

	if got := Filter(trades, ForSymbol("BTCUSDT")); len(got) != 2 {
		t.Errorf("Expected 2 BTC trades, got %d", len(got))
	}
	if got := Filter(trades, OnDay(day0)); len(got) != 2 {
		t.Errorf("Expected 2 trades on first day, got %d", len(got))
	}
}

func TestFormat(t *testing.T) {
	tests := map[float64]string{
		0:       "0.00",
		4.54545: "4.55",
		-1.005:  "-1.01",
		1.005:   "1.01",
		2:       "2.00",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%v): expected %s, got %s", in, want, got)
		}
	}
	if Format(math.NaN()) != "0.00" {
		t.Error("Expected NaN to format as 0.00")
	}
}
