// internal/llm/anthropic.go
package llm

import (
	"context"
	"net/http"
	"strings"
)

type anthropic struct{}

func (anthropic) name() string { return "anthropic" }

func (anthropic) complete(ctx context.Context, c *Client, req Request) (string, error) {
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\nRespond with a single JSON object and nothing else.")
	}

	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages": []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if system != "" {
		payload["system"] = system
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint("https://api.anthropic.com", "/v1/messages"),
		map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": "2023-06-01",
		}, payload, &raw)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range raw.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
