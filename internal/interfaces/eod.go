package interfaces

import (
	"context"
	"time"

	"trade-report/internal/types"
)

// EodSummarizer writes per-symbol day summaries of a confirmed report.
type EodSummarizer interface {
	// SummarizeDay writes the summary of trades entered on day. It returns
	// an empty path when no trade falls on that day.
	SummarizeDay(ctx context.Context, report types.Report, day time.Time) (csvPath string, err error)

	// SummarizeAll writes one summary per trading day in the report.
	SummarizeAll(ctx context.Context, report types.Report) (csvPaths []string, err error)
}
