package openai

import (
	"context"
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
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
)

// Client implements llm.Completer using the chat completions API.
type Client struct {
	cfg  *store.Config
	http *api.Client
}

func New(cfg *store.Config) *Client {
	endpoint := defaultEndpoint
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Client{
		cfg:  cfg,
		http: api.NewClient(api.WithBaseURL(endpoint), api.WithTimeout(90*time.Second), api.WithLogging(true)),
	}
}

func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	model := c.cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"temperature": c.cfg.LLM.Temperature,
		"max_tokens":  c.cfg.LLM.MaxTokens,
	}

	req := api.NewRequest(http.MethodPost, "").
		WithContext(ctx).
		WithBody(body).
		WithHeader("Authorization", "Bearer "+apiKey)

	resp, err := c.http.DoWithRetry(req, &api.RetryConfig{
		MaxAttempts: c.cfg.LLM.MaxAttempts,
		InitialWait: time.Second,
		MaxWait:     5 * time.Second,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", err
	}
	if len(r.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
