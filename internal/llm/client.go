// Package llm sends single-turn completion requests to a hosted language
// model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudwise/internal/common/config"
	httpclient "cloudwise/internal/common/http"
	"cloudwise/internal/common/metrics"
)

var (
	ErrRequestFailed = errors.New("LLM_REQUEST_FAILED")
	ErrTimeout       = errors.New("LLM_TIMEOUT")
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

// ErrMissingKey is returned when the configured provider has no API key.
type ErrMissingKey string

func (e ErrMissingKey) Error() string {
	return fmt.Sprintf("missing API key for %s", string(e))
}

// Request is one prompt. Zero Temperature and MaxTokens fall back to the
// client's configured defaults.
type Request struct {
	Purpose     string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Completer returns the model's text answer for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type provider interface {
	name() string
	complete(ctx context.Context, c *Client, req Request) (string, error)
}

// Client is a Completer backed by OpenAI chat completions or the Anthropic
// messages API.
type Client struct {
	provider    provider
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	http        *httpclient.Client
	logger      Logger
}

// New builds a client for cfg.Provider.
func New(cfg config.LLMConfig, log Logger) (*Client, error) {
	var p provider
	switch cfg.Provider {
	case "", "openai":
		p = openAI{}
	case "anthropic":
		p = anthropic{}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingKey(p.name())
	}

	return &Client{
		provider:    p,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		http:        httpclient.NewClient(config.GetDuration(cfg.Timeout)),
		logger:      log,
	}, nil
}

// Provider names the backing API.
func (c *Client) Provider() string { return c.provider.name() }

// Complete retries transient failures with exponential backoff.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = "completion"
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", c.fail(purpose, ctx.Err())
			case <-time.After(backoff):
			}
		}

		text, err := c.provider.complete(ctx, c, req)
		if err == nil {
			text = TrimFences(text)
			if text == "" {
				lastErr = ErrEmptyResponse
				break
			}
			metrics.LLMRequests.WithLabelValues(purpose, "success").Inc()
			return text, nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
		c.logger.Warn("LLM request failed, retrying", map[string]interface{}{
			"provider": c.provider.name(),
			"purpose":  purpose,
			"attempt":  attempt + 1,
			"error":    err.Error(),
		})
	}

	return "", c.fail(purpose, lastErr)
}

func (c *Client) fail(purpose string, err error) error {
	status := "error"
	wrapped := fmt.Errorf("%w: %v", ErrRequestFailed, err)
	if errors.Is(err, context.DeadlineExceeded) {
		status = "timeout"
		wrapped = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	metrics.LLMRequests.WithLabelValues(purpose, status).Inc()
	return wrapped
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

func (c *Client) endpoint(defaultBase, path string) string {
	base := c.baseURL
	if base == "" {
		base = defaultBase
	}
	return base + path
}

// TrimFences removes ```json / ``` wrappers a model may add around its answer.
func TrimFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimLeft(s, "`")
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
