// Package optimizer turns resource inventories and cost reports into cost
// optimization advice.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloudwise/internal/llm"
	"cloudwise/internal/models"
)

const (
	StrategyLLM       = "llm"
	StrategyHeuristic = "heuristic"

	SectionOpportunities       = "opportunities"
	SectionRecommendations     = "recommendations"
	SectionSavingsEstimates    = "savings_estimates"
	SectionImplementationSteps = "implementation_steps"
)

var (
	ErrOptimizationFailed = errors.New("COST_OPTIMIZATION_FAILED")
	ErrUnknownStrategy    = errors.New("UNKNOWN_STRATEGY")
)

// Strategy produces the four optimization sections.
type Strategy interface {
	Name() string
	Optimize(ctx context.Context, resourceDetails map[string]any, costData map[string]*models.CostReport) (models.Sections, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Registry resolves strategies by name, falling back to a default.
type Registry struct {
	strategies map[string]Strategy
	fallback   string
}

// NewRegistry registers the heuristic strategy always and the model strategy
// when a completer is available. An unavailable default falls back to the
// heuristic.
func NewRegistry(completer llm.Completer, defaultStrategy string, log Logger) *Registry {
	r := &Registry{
		strategies: map[string]Strategy{StrategyHeuristic: NewHeuristic()},
		fallback:   StrategyHeuristic,
	}
	if completer != nil {
		r.strategies[StrategyLLM] = NewLLM(completer, log)
	}
	if _, ok := r.strategies[strings.ToLower(defaultStrategy)]; ok {
		r.fallback = strings.ToLower(defaultStrategy)
	}
	return r
}

// Get returns the named strategy, or the default when name is blank.
func (r *Registry) Get(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.fallback
	}
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Default is the strategy used when callers name none.
func (r *Registry) Default() Strategy {
	return r.strategies[r.fallback]
}

// Empty returns the four sections with no content.
func Empty() models.Sections {
	return models.Sections{
		SectionOpportunities:       {},
		SectionRecommendations:     {},
		SectionSavingsEstimates:    {},
		SectionImplementationSteps: {},
	}
}
