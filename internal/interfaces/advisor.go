package interfaces

import (
	"context"

	"trade-report/internal/types"
)

// Advisor produces natural-language analysis of a trade list.
// tradesCSV is the export.TradesCSV rendering of the trades.
type Advisor interface {
	Insights(ctx context.Context, tradesCSV string) ([]types.Insight, error)
	Ask(ctx context.Context, question, tradesCSV string) (string, error)
}
