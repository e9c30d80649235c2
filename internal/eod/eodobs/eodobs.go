package eodobs

import (
	"context"
	"time"

	"trade-report/internal/interfaces"
	"trade-report/internal/logger"
	"trade-report/internal/trace"
	"trade-report/internal/types"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, report types.Report, day time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD summary generation",
		"date", day.Format("2006-01-02"),
	)

	csvPath, err := oes.summarizer.SummarizeDay(ctx, report, day)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary generation failed", err,
			"date", day.Format("2006-01-02"),
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No trades found for EOD summary",
			"date", day.Format("2006-01-02"),
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD summary generated successfully",
		"date", day.Format("2006-01-02"),
		"csv_path", csvPath,
	)

	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeAll(ctx context.Context, report types.Report) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeAll")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD summaries for report", "trades", len(report.Trades))

	paths, err := oes.summarizer.SummarizeAll(ctx, report)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summaries failed", err, "written", len(paths))
		return paths, err
	}

	logger.InfoSkip(ctx, 1, "EOD summaries generated", "days", len(paths))
	return paths, nil
}
