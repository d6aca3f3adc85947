// internal/optimizer/llm.go
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"

	"cloudwise/internal/common/metrics"
	"cloudwise/internal/llm"
	"cloudwise/internal/models"
	"cloudwise/internal/sections"
)

const (
	llmTemperature = 0.7
	llmMaxTokens   = 1200
)

const llmSystemPrompt = "You are a cloud infrastructure assistant that helps users manage and analyze " +
	"their AWS and Azure resources. Base every figure on the data you are given."

const llmPromptTemplate = `Resource Context:
%s

Current Costs:
%s

Analyze the current resource usage and costs and reply with exactly these four
sections, each a header line followed by "- " bullet lines:
Opportunities:
Recommendations:
Savings Estimates:
Implementation Steps:
`

var llmParser = sections.New(
	sections.Heading{Name: SectionOpportunities, Aliases: []string{"opportunities", "cost optimization opportunities", "optimization opportunities", "opportunity"}},
	sections.Heading{Name: SectionRecommendations, Aliases: []string{"recommendations", "specific recommendations", "recommendation"}},
	sections.Heading{Name: SectionSavingsEstimates, Aliases: []string{"savings estimates", "potential cost savings", "potential savings", "savings", "estimated savings"}},
	sections.Heading{Name: SectionImplementationSteps, Aliases: []string{"implementation steps", "implementation", "next steps"}},
)

// LLM asks the language model for advice.
type LLM struct {
	llm    llm.Completer
	logger Logger
}

func NewLLM(completer llm.Completer, log Logger) *LLM {
	return &LLM{llm: completer, logger: log}
}

func (s *LLM) Name() string { return StrategyLLM }

func (s *LLM) Optimize(ctx context.Context, resourceDetails map[string]any, costData map[string]*models.CostReport) (models.Sections, error) {
	resources, err := json.MarshalIndent(resourceDetails, "", "  ")
	if err != nil {
		return Empty(), fmt.Errorf("%w: encode resources: %v", ErrOptimizationFailed, err)
	}
	costs, err := json.MarshalIndent(costData, "", "  ")
	if err != nil {
		return Empty(), fmt.Errorf("%w: encode costs: %v", ErrOptimizationFailed, err)
	}

	answer, err := s.llm.Complete(ctx, llm.Request{
		Purpose:     "optimize_costs",
		System:      llmSystemPrompt,
		Prompt:      fmt.Sprintf(llmPromptTemplate, resources, costs),
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrOptimizationFailed, err)
	}

	doc := llmParser.Parse(answer)
	if doc.Degraded() {
		metrics.ParseDegradations.WithLabelValues("optimization").Inc()
		s.logger.Warn("Cost advice had no recognizable sections", map[string]interface{}{
			"length": len(answer),
		})
	}

	out := Empty()
	for name := range out {
		out[name] = doc.Items(name)
	}
	return out, nil
}
