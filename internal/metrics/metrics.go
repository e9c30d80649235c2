// Package metrics derives performance statistics from a set of trades.
// Every function here is pure: the same trades and capital always yield
// the same report, so it can be called freely for drill-down subsets.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"trade-report/internal/types"
)

// StartLabel labels the first point of the capital evolution.
const StartLabel = "start"

const labelLayout = "2006-01-02"

// Compute builds the report for trades and an initial capital. Trades are
// taken in entry-date order; the input slice is not modified.
//
// Gross figures add each trade's fees back to its result. That is exact
// when the result was computed from amounts, and only an approximation
// when it came from exchange-reported realized profit.
func Compute(trades []types.Trade, capital float64) types.Report {
	sorted := append([]types.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EntryDate().Before(sorted[j].EntryDate()) })

	r := types.Report{
		InitialCapital:   capital,
		Total:            len(sorted),
		Trades:           sorted,
		CapitalEvolution: make([]types.CapitalPoint, 0, len(sorted)+1),
	}
	r.CapitalEvolution = append(r.CapitalEvolution, types.CapitalPoint{Label: StartLabel, Capital: capital})

	current := capital
	for _, t := range sorted {
		switch {
		case t.Result > 0:
			r.Wins++
			r.Gains += t.Result
		case t.Result < 0:
			r.Losses++
			r.LossesTotal += t.Result
		default:
			r.Neutral++
		}

		gross := t.Result + t.Fees
		if gross > 0 {
			r.GrossGains += gross
		} else if gross < 0 {
			r.GrossLosses += gross
		}

		r.Fees += t.Fees
		r.Net += t.Result
		current += t.Result
		r.CapitalEvolution = append(r.CapitalEvolution, types.CapitalPoint{
			Label:   t.EntryDate().Format(labelLayout),
			Capital: current,
		})
	}

	if r.Total > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Total) * 100
		if capital != 0 {
			r.Return = r.Net / capital * 100
		}
	}
	if r.Losses > 0 {
		avgWin := 0.0
		if r.Wins > 0 {
			avgWin = r.Gains / float64(r.Wins)
		}
		avgLoss := math.Abs(r.LossesTotal) / float64(r.Losses)
		if avgLoss > 0 {
			r.PayoffRatio = avgWin / avgLoss
			r.ProfitFactor = r.Gains / math.Abs(r.LossesTotal)
		}
	}
	r.MaxDrawdown = MaxDrawdown(r.CapitalEvolution)
	r.Summary = summarize(r)
	return r
}

// DrawdownPoint is the running peak and drawdown at one capital point.
type DrawdownPoint struct {
	Label    string  `json:"label"`
	Capital  float64 `json:"capital"`
	Peak     float64 `json:"peak"`
	Drawdown float64 `json:"drawdown"`
}

// DrawdownSeries walks the capital evolution keeping a running peak. The
// drawdown is a percentage of the peak and is 0 while the peak is not
// positive.
func DrawdownSeries(points []types.CapitalPoint) []DrawdownPoint {
	out := make([]DrawdownPoint, 0, len(points))
	peak := math.Inf(-1)
	for _, p := range points {
		if p.Capital > peak {
			peak = p.Capital
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - p.Capital) / peak * 100
		}
		out = append(out, DrawdownPoint{Label: p.Label, Capital: p.Capital, Peak: peak, Drawdown: dd})
	}
	return out
}

// MaxDrawdown is the largest drawdown percentage of the series.
func MaxDrawdown(points []types.CapitalPoint) float64 {
	worst := 0.0
	for _, p := range DrawdownSeries(points) {
		if p.Drawdown > worst {
			worst = p.Drawdown
		}
	}
	return worst
}

func summarize(r types.Report) types.Summary {
	return types.Summary{
		WinRate:      Format(r.WinRate),
		Gains:        Format(r.Gains),
		Losses:       Format(r.LossesTotal),
		GrossGains:   Format(r.GrossGains),
		GrossLosses:  Format(r.GrossLosses),
		Fees:         Format(r.Fees),
		Net:          Format(r.Net),
		Return:       Format(r.Return),
		PayoffRatio:  Format(r.PayoffRatio),
		ProfitFactor: Format(r.ProfitFactor),
		MaxDrawdown:  Format(r.MaxDrawdown),
	}
}

// Format renders v with exactly two decimals, rounding half away from zero.
// Rounding applies to the shortest decimal form of v, so 1.005 gives "1.01"
// even though the nearest binary value lies just below 1.005.
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
