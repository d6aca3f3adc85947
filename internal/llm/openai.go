// internal/llm/openai.go
package llm

import (
	"context"
	"net/http"
)

type openAI struct{}

func (openAI) name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (openAI) complete(ctx context.Context, c *Client, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	if req.JSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint("https://api.openai.com", "/v1/chat/completions"),
		map[string]string{"Authorization": "Bearer " + c.apiKey}, payload, &raw)
	if err != nil {
		return "", err
	}

	if len(raw.Choices) == 0 {
		return "", nil
	}
	return raw.Choices[0].Message.Content, nil
}
