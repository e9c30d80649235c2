package llmobs

import (
	"context"

	"trade-report/internal/interfaces"
	"trade-report/internal/logger"
	"trade-report/internal/trace"
	"trade-report/internal/types"
)

// observableAdvisor wraps an Advisor with logging and tracing
type observableAdvisor struct {
	advisor interfaces.Advisor
}

var _ interfaces.Advisor = (*observableAdvisor)(nil)

// Wrap wraps an advisor with observability middleware
func Wrap(advisor interfaces.Advisor) interfaces.Advisor {
	return &observableAdvisor{advisor: advisor}
}

func (o *observableAdvisor) Insights(ctx context.Context, tradesCSV string) ([]types.Insight, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Insights")
	defer span.End()

	// Skip(1) reports the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting trade insights", "csvBytes", len(tradesCSV))

	insights, err := o.advisor.Insights(ctx, tradesCSV)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trade insights", err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Trade insights received", "count", len(insights))
	return insights, nil
}

func (o *observableAdvisor) Ask(ctx context.Context, question, tradesCSV string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Ask")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Asking question about trades", "question", question, "csvBytes", len(tradesCSV))

	answer, err := o.advisor.Ask(ctx, question, tradesCSV)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to answer question", err, "question", question)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Answer received", "answerLen", len(answer))
	return answer, nil
}
