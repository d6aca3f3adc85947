// Package analyst explains a failed provider operation with one language
// model call.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloudwise/internal/common/metrics"
	"cloudwise/internal/llm"
	"cloudwise/internal/models"
	"cloudwise/internal/sections"
)

const (
	SectionExplanation = "explanation"
	SectionCauses      = "causes"
	SectionSolutions   = "solutions"
	SectionPrevention  = "prevention"

	temperature = 0.7
	maxTokens   = 800
)

var ErrAnalysisFailed = errors.New("ERROR_ANALYSIS_FAILED")

const systemPrompt = "You are a cloud infrastructure assistant that helps users manage and analyze " +
	"their AWS and Azure resources. Be concise and specific."

const promptTemplate = `Error Context:
- Operation: %s
- Error Message: %s
- Platform: %s
- Resource: %s

Please analyze this error and reply with exactly these four sections, each a
header line followed by "- " bullet lines:
Explanation:
Causes:
Solutions:
Prevention:
`

var parser = sections.New(
	sections.Heading{Name: SectionExplanation, Aliases: []string{"explanation", "what went wrong", "summary"}},
	sections.Heading{Name: SectionCauses, Aliases: []string{"causes", "potential causes", "possible causes", "cause"}},
	sections.Heading{Name: SectionSolutions, Aliases: []string{"solutions", "recommended solutions", "solution", "fix"}},
	sections.Heading{Name: SectionPrevention, Aliases: []string{"prevention", "prevention steps", "preventing this"}},
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Analyst struct {
	llm    llm.Completer
	logger Logger
}

func New(completer llm.Completer, log Logger) *Analyst {
	return &Analyst{llm: completer, logger: log}
}

// Analyze returns the four explanation sections. Unstructured output yields
// empty sections rather than an error.
func (a *Analyst) Analyze(ctx context.Context, operation, errorMessage, platform, resource string) (models.Sections, error) {
	answer, err := a.llm.Complete(ctx, llm.Request{
		Purpose:     "analyze_error",
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, orUnknown(operation), errorMessage, orUnknown(platform), orUnknown(resource)),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	doc := parser.Parse(answer)
	if doc.Degraded() {
		metrics.ParseDegradations.WithLabelValues("analysis").Inc()
		a.logger.Warn("Error analysis had no recognizable sections", map[string]interface{}{
			"operation": operation,
			"platform":  platform,
		})
	}

	out := Empty()
	for name := range out {
		out[name] = doc.Items(name)
	}
	return out, nil
}

// AnalyzeAll attaches an analysis to every error entry. A failed analysis
// leaves its entry unannotated.
func (a *Analyst) AnalyzeAll(ctx context.Context, entries []models.OperationError, command models.Command) {
	for i := range entries {
		e := &entries[i]
		operation := e.Operation
		if operation == "" {
			operation = command.Action
		}
		analysis, err := a.Analyze(ctx, operation, e.Message, e.Platform, strings.Join(command.Resources, ", "))
		if err != nil {
			a.logger.Debug("Error analysis skipped", map[string]interface{}{
				"key":   e.Key,
				"error": err.Error(),
			})
			continue
		}
		e.Analysis = &analysis
	}
}

// Empty returns the four sections with no content.
func Empty() models.Sections {
	return models.Sections{
		SectionExplanation: {},
		SectionCauses:      {},
		SectionSolutions:   {},
		SectionPrevention:  {},
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
