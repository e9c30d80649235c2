package export

import (
	"bytes"
	"encoding/csv"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

// TradesHeader is the fixed column set handed to the insight service.
var TradesHeader = []string{"symbol", "startDate", "result", "fees", "winLoss"}

// TradesCSV renders one line per trade. winLoss is 1 for a positive result
// and 0 otherwise.
func TradesCSV(trades []types.Trade) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(TradesHeader); err != nil {
		return "", err
	}
	for _, t := range trades {
		winLoss := "0"
		if t.Result > 0 {
			winLoss = "1"
		}
		rec := []string{
			t.Symbol,
			t.EntryDate().Format("2006-01-02"),
			metrics.Format(t.Result),
			metrics.Format(t.Fees),
			winLoss,
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}
