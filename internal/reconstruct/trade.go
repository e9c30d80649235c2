package reconstruct

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"trade-report/internal/types"
)

// DefaultTolerance is the absolute quantity difference below which two
// legs are considered balanced.
const DefaultTolerance = 1e-8

var tradeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("trade-report:trade"))

// Balanced reports whether two quantities are equal within tol.
func Balanced(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// BuildTrade assembles a trade from its BUY and SELL fills. The caller is
// responsible for checking the quantities balance.
func BuildTrade(symbol string, buys, sells []types.Fill) types.Trade {
	t := types.Trade{
		Symbol:     symbol,
		EntryFills: append([]types.Fill(nil), buys...),
		ExitFills:  append([]types.Fill(nil), sells...),
		TotalQty:   types.SumQty(buys),
	}
	all := t.Fills()
	t.ID = TradeID(all)
	t.Fees = types.SumFee(all)
	t.Result = ComputeResult(buys, sells)
	return t
}

// ComputeResult is the realized profit of a trade. Exchange-reported profit wins
// whenever any fill carries a nonzero value; otherwise it is sell proceeds
// minus buy cost minus all fees.
func ComputeResult(buys, sells []types.Fill) float64 {
	all := make([]types.Fill, 0, len(buys)+len(sells))
	all = append(append(all, buys...), sells...)

	for _, f := range all {
		if f.RProfit != 0 {
			return types.SumRProfit(all)
		}
	}
	return types.SumAmount(sells) - types.SumAmount(buys) - types.SumFee(all)
}

// TradeID derives the trade identifier from its fills, so the same fills
// always produce the same trade.
func TradeID(fills []types.Fill) string {
	ids := make([]string, len(fills))
	for i, f := range fills {
		ids[i] = f.ID
	}
	return uuid.NewSHA1(tradeNamespace, []byte(strings.Join(ids, ","))).String()
}
