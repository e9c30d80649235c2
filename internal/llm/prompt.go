package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trade-report/internal/types"
)

const DefaultSystem = "You are a trading performance coach. You analyze a trader's closed trades " +
	"and answer strictly from the data you are given. Output STRICT JSON."

// InsightPrompt asks for behavioral patterns as a JSON array.
func InsightPrompt(tradesCSV string) string {
	var sb strings.Builder
	sb.WriteString("Below is a CSV of closed trades with columns symbol,startDate,result,fees,winLoss ")
	sb.WriteString("(winLoss is 1 for a winning trade and 0 otherwise).\n\n")
	sb.WriteString(fmt.Sprintf("Find up to %d relevant patterns. Look for:\n", MaxInsights))
	sb.WriteString("1. Contextual performance: symbols, weekdays or periods where results differ clearly.\n")
	sb.WriteString("2. Behavioral biases: streaks, overtrading after losses, cutting winners early.\n")
	sb.WriteString("3. Fees and risk: fees eating into results, outsized losses against average wins.\n\n")
	sb.WriteString("Respond ONLY with a JSON array. Each element has the keys ")
	sb.WriteString(`"title", "evidence" (numbers taken from the data) and "recommendation".`)
	sb.WriteString("\n\nCSV:\n")
	sb.WriteString(tradesCSV)
	return sb.String()
}

// AskPrompt wraps a user question with the trades CSV.
func AskPrompt(question, tradesCSV string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the CSV of closed trades below ")
	sb.WriteString("(columns symbol,startDate,result,fees,winLoss). ")
	sb.WriteString("If the data cannot answer it, say so.\n")
	sb.WriteString(`Respond ONLY with compact JSON of the form {"answer": "..."}.`)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nCSV:\n")
	sb.WriteString(tradesCSV)
	return sb.String()
}

// ParseInsights extracts the insight array from a model reply. The array may
// be wrapped in a code fence, surrounded by prose or nested under an
// "insights" key.
func ParseInsights(text string) ([]types.Insight, error) {
	t := stripFence(text)

	if sub, ok := enclosed(t, '[', ']'); ok {
		var out []types.Insight
		if err := json.Unmarshal([]byte(sub), &out); err == nil {
			return clean(out), nil
		}
	}
	if sub, ok := enclosed(t, '{', '}'); ok {
		var wrapped struct {
			Insights []types.Insight `json:"insights"`
		}
		if err := json.Unmarshal([]byte(sub), &wrapped); err == nil && wrapped.Insights != nil {
			return clean(wrapped.Insights), nil
		}
	}
	return nil, errors.New("unable to parse insights from model output")
}

// ParseAnswer returns the "answer" field of a JSON reply, or the trimmed
// reply itself when it is not JSON.
func ParseAnswer(text string) string {
	t := stripFence(text)
	if sub, ok := enclosed(t, '{', '}'); ok {
		var r struct {
			Answer *string `json:"answer"`
		}
		if err := json.Unmarshal([]byte(sub), &r); err == nil && r.Answer != nil {
			return strings.TrimSpace(*r.Answer)
		}
	}
	return t
}

func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "```"))
}

func enclosed(t string, open, close byte) (string, bool) {
	start := strings.IndexByte(t, open)
	end := strings.LastIndexByte(t, close)
	if start < 0 || end <= start {
		return "", false
	}
	return t[start : end+1], true
}

// clean drops entries without a title.
func clean(in []types.Insight) []types.Insight {
	out := make([]types.Insight, 0, len(in))
	for _, i := range in {
		i.Title = strings.TrimSpace(i.Title)
		if i.Title == "" {
			continue
		}
		out = append(out, i)
	}
	return out
}
