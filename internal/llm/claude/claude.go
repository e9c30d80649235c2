package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"trade-report/internal/api"
	"trade-report/internal/store"
	"trade-report/internal/trace"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	defaultModel    = "claude-3-5-sonnet-latest"
	apiVersion      = "2023-06-01"
)

// Client implements llm.Completer using the Anthropic messages API.
type Client struct {
	cfg  *store.Config
	http *api.Client
}

// New creates a Claude client. CLAUDE_API_ENDPOINT overrides the public
// endpoint for proxies.
func New(cfg *store.Config) *Client {
	endpoint := defaultEndpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Client{
		cfg: cfg,
		http: api.NewClient(
			api.WithBaseURL(endpoint),
			api.WithHeader("anthropic-version", apiVersion),
			api.WithTimeout(90*time.Second),
			api.WithLogging(true),
		),
	}
}

// Complete sends one exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return "", errors.New("CLAUDE_API_KEY missing")
	}

	model := c.cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	body := map[string]any{
		"model":       model,
		"system":      system,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  c.cfg.LLM.MaxTokens,
		"temperature": c.cfg.LLM.Temperature,
	}

	req := api.NewRequest(http.MethodPost, "").
		WithContext(ctx).
		WithBody(body).
		WithHeader("x-api-key", apiKey)

	resp, err := c.http.DoWithRetry(req, &api.RetryConfig{
		MaxAttempts: c.cfg.LLM.MaxAttempts,
		InitialWait: time.Second,
		MaxWait:     5 * time.Second,
	})
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}
	return extractText(resp.Body), nil
}

// extractText pulls the assistant text out of a messages response. Older
// completion shapes and proxies returning plain text are accepted too.
func extractText(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return string(body)
	}

	if content, ok := m["content"].([]any); ok {
		var sb strings.Builder
		for _, block := range content {
			if b, ok := block.(map[string]any); ok {
				if s, ok := b["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	for _, k := range []string{"completion", "output_text", "result"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if choices, ok := m["choices"].([]any); ok && len(choices) > 0 {
		if c0, ok := choices[0].(map[string]any); ok {
			if msg, ok := c0["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok {
					return s
				}
			}
		}
	}
	return string(body)
}
