// Package llm turns a chat-completion backend into an insight and Q&A
// service over the trades CSV.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trade-report/internal/types"
)

// MaxInsights caps the number of findings returned by Insights.
const MaxInsights = 3

// ErrNoTrades is returned when there is nothing to analyze.
var ErrNoTrades = errors.New("no trades to analyze")

// Completer sends one system and one user message and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Advisor builds prompts, calls a Completer and parses its replies.
type Advisor struct {
	completer Completer
	system    string
}

// NewAdvisor returns an Advisor. An empty system uses DefaultSystem.
func NewAdvisor(c Completer, system string) *Advisor {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystem
	}
	return &Advisor{completer: c, system: system}
}

// Insights asks for up to MaxInsights behavioral patterns in the trades.
func (a *Advisor) Insights(ctx context.Context, tradesCSV string) ([]types.Insight, error) {
	if !hasTrades(tradesCSV) {
		return nil, ErrNoTrades
	}
	reply, err := a.completer.Complete(ctx, a.system, InsightPrompt(tradesCSV))
	if err != nil {
		return nil, fmt.Errorf("insight request failed: %w", err)
	}
	insights, err := ParseInsights(reply)
	if err != nil {
		return nil, err
	}
	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}
	return insights, nil
}

// Ask answers a free-form question using only the trades CSV as data.
func (a *Advisor) Ask(ctx context.Context, question, tradesCSV string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is empty")
	}
	if !hasTrades(tradesCSV) {
		return "", ErrNoTrades
	}
	reply, err := a.completer.Complete(ctx, a.system, AskPrompt(question, tradesCSV))
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	return ParseAnswer(reply), nil
}

// hasTrades reports whether the CSV carries at least one data line.
func hasTrades(csv string) bool {
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	return len(lines) > 1
}
