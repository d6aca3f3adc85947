// Package interpreter turns a natural-language request into a structured
// command with one language model call.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloudwise/internal/common/metrics"
	"cloudwise/internal/common/validation"
	"cloudwise/internal/llm"
	"cloudwise/internal/models"
)

const (
	ModeJSON = "json"
	ModeText = "text"

	temperature = 0.1
	maxTokens   = 500
)

var (
	ErrInterpretationFailed = errors.New("QUERY_INTERPRETATION_FAILED")
	ErrEmptyQuery           = errors.New("EMPTY_QUERY")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Interpreter is stateless apart from its collaborators.
type Interpreter struct {
	llm    llm.Completer
	mode   string
	schema *validation.Schema
	logger Logger
}

// New builds an interpreter. An unknown mode falls back to JSON.
func New(completer llm.Completer, mode string, log Logger) *Interpreter {
	if mode != ModeText {
		mode = ModeJSON
	}
	return &Interpreter{
		llm:    completer,
		mode:   mode,
		schema: validation.MustCompileJSON(commandSchema),
		logger: log,
	}
}

// Mode reports the response layout requested from the model.
func (i *Interpreter) Mode() string { return i.mode }

// Interpret asks the model for a command. Only a failed model call is an
// error; unparseable output degrades to a partial or empty command.
func (i *Interpreter) Interpret(ctx context.Context, query string, platforms []string, queryContext map[string]any) (models.Command, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.NewCommand(), ErrEmptyQuery
	}

	contextText := "No additional context"
	if len(queryContext) > 0 {
		if raw, err := json.Marshal(queryContext); err == nil {
			contextText = string(raw)
		}
	}
	platformList := strings.Join(platforms, ", ")

	req := llm.Request{
		Purpose:     "interpret",
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if i.mode == ModeJSON {
		req.System = jsonSystemPrompt
		req.Prompt = fmt.Sprintf(jsonPromptTemplate, platformList, query, contextText)
		req.JSON = true
	} else {
		req.System = textSystemPrompt
		req.Prompt = fmt.Sprintf(textPromptTemplate, query, platformList, contextText)
	}

	answer, err := i.llm.Complete(ctx, req)
	if err != nil {
		return models.NewCommand(), fmt.Errorf("%w: %w", ErrInterpretationFailed, err)
	}

	var cmd models.Command
	if i.mode == ModeJSON {
		cmd = i.decodeJSON(answer)
	} else {
		parsed, doc := ParseTextDocument(answer)
		if doc.Degraded() {
			i.degraded("text", "no recognizable sections in model output", answer)
		}
		cmd = parsed
	}

	i.logger.Debug("Query interpreted", map[string]interface{}{
		"mode":      i.mode,
		"platforms": cmd.Platforms,
		"resources": cmd.Resources,
		"action":    cmd.Action,
	})
	return cmd, nil
}

// decodeJSON is lenient: fences and prose around the object are tolerated and
// anything undecodable yields an empty command.
func (i *Interpreter) decodeJSON(answer string) models.Command {
	raw := []byte(extractObject(llm.TrimFences(answer)))
	if !json.Valid(raw) {
		i.degraded("json", "model output is not JSON", answer)
		return models.NewCommand()
	}

	if result, err := i.schema.ValidateBytes(raw); err == nil && !result.Valid {
		i.degraded("json_schema", result.Summary(), answer)
	}

	var cmd models.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		i.degraded("json", err.Error(), answer)
		return models.NewCommand()
	}
	return cmd
}

func (i *Interpreter) degraded(parser, reason, answer string) {
	metrics.ParseDegradations.WithLabelValues(parser).Inc()
	if len(answer) > 512 {
		answer = answer[:512]
	}
	i.logger.Warn("Model output only partially understood", map[string]interface{}{
		"parser": parser,
		"reason": reason,
		"output": answer,
	})
}

func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
