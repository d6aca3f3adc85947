// internal/service/optimize.go
package service

import (
	"context"
	"errors"
	"strings"

	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/dispatcher"
	"cloudwise/internal/gateway"
	"cloudwise/internal/llm"
	"cloudwise/internal/models"
	"cloudwise/internal/optimizer"
)

type OptimizeRequest struct {
	Platform string `json:"platform"`
	Strategy string `json:"strategy,omitempty"`
}

type OptimizeResult struct {
	Platform        string                        `json:"platform"`
	Strategy        string                        `json:"strategy"`
	Recommendations models.Sections               `json:"recommendations"`
	Resources       map[string]any                `json:"resources"`
	Costs           map[string]*models.CostReport `json:"costs"`
	Errors          map[string]string             `json:"errors,omitempty"`
}

// OptimizeCosts gathers inventories and the trailing 30-day spend of the
// selected platforms and runs one optimization strategy over them. A failed
// gather is reported in Errors and does not stop the others.
func (s *Service) OptimizeCosts(ctx context.Context, req OptimizeRequest) (*OptimizeResult, error) {
	platforms, err := selectPlatforms(req.Platform)
	if err != nil {
		return nil, err
	}
	if s.deps.Optimizers == nil {
		return nil, apperrors.NewConfigurationError("cost optimizer", "no strategies registered")
	}
	strategy, err := s.deps.Optimizers.Get(req.Strategy)
	if err != nil {
		if errors.Is(err, optimizer.ErrUnknownStrategy) {
			return nil, apperrors.NewInvalidInputError(err.Error())
		}
		return nil, apperrors.NewCostOptimizationFailedError(err)
	}

	g := &gather{
		resources: map[string]any{},
		costs:     map[string]*models.CostReport{},
		errors:    map[string]string{},
	}
	window, err := dispatcher.CostWindow(models.Parameters{}, "", "", s.deps.Now().UTC())
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	for _, platform := range platforms {
		gw := s.deps.Gateways[platform]
		if gw == nil {
			g.errors[platform+"_error"] = apperrors.NewProviderNotInitializedError(gateway.DisplayName(platform)).Message
			continue
		}
		switch platform {
		case gateway.PlatformAWS:
			g.collect("aws_ec2", func() (any, error) { return gw.ListInstances(ctx, gateway.InstanceQuery{}) })
			g.collect("aws_s3", func() (any, error) { return gw.ListStorage(ctx) })
		case gateway.PlatformAzure:
			g.collect("azure_vms", func() (any, error) { return gw.ListInstances(ctx, gateway.InstanceQuery{}) })
			g.collect("azure_groups", func() (any, error) { return gw.ListGroups(ctx) })
		}
		report, err := gw.GetCostAndUsage(ctx, window)
		if err != nil {
			g.errors[platform+"_costs"] = err.Error()
		} else {
			g.costs[platform] = report
		}
	}

	for key, msg := range g.errors {
		s.deps.Logger.Warn("Cost data gather failed", map[string]interface{}{
			"key":   key,
			"error": msg,
		})
	}

	recommendations, err := strategy.Optimize(ctx, g.resources, g.costs)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			return nil, apperrors.NewLLMTimeoutError(err)
		}
		return nil, apperrors.NewCostOptimizationFailedError(err)
	}

	result := &OptimizeResult{
		Platform:        strings.Join(platforms, ","),
		Strategy:        strategy.Name(),
		Recommendations: recommendations,
		Resources:       g.resources,
		Costs:           g.costs,
	}
	if len(g.errors) > 0 {
		result.Errors = g.errors
	}
	if len(platforms) > 1 {
		result.Platform = PlatformAll
	}
	return result, nil
}

type gather struct {
	resources map[string]any
	costs     map[string]*models.CostReport
	errors    map[string]string
}

func (g *gather) collect(key string, fetch func() (any, error)) {
	v, err := fetch()
	if err != nil {
		g.errors[key] = err.Error()
		return
	}
	g.resources[key] = v
}

func selectPlatforms(platform string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "", PlatformAll:
		return []string{gateway.PlatformAWS, gateway.PlatformAzure}, nil
	case gateway.PlatformAWS:
		return []string{gateway.PlatformAWS}, nil
	case gateway.PlatformAzure:
		return []string{gateway.PlatformAzure}, nil
	default:
		return nil, apperrors.NewInvalidInputError("platform must be one of all, aws, azure")
	}
}
