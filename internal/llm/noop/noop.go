package noop

import (
	"context"

	"trade-report/internal/logger"
	"trade-report/internal/types"
)

// Answer is returned by Ask when no LLM provider is configured.
const Answer = "AI analysis is disabled. Set llm.provider to OPENAI or CLAUDE to enable it."

// Advisor is the fallback used when no LLM is configured.
type Advisor struct{}

func New() *Advisor {
	return &Advisor{}
}

// Insights returns no findings.
func (a *Advisor) Insights(ctx context.Context, tradesCSV string) ([]types.Insight, error) {
	logger.Debug(ctx, "Noop advisor called - returning no insights")
	return []types.Insight{}, nil
}

func (a *Advisor) Ask(ctx context.Context, question, tradesCSV string) (string, error) {
	logger.Debug(ctx, "Noop advisor called - returning fixed answer")
	return Answer, nil
}
