// internal/workers/cloud-query/optimize-costs/models.go
package optimizecosts

import (
	"cloudwise/internal/common/validation"
	"cloudwise/internal/service"
)

type Input struct {
	Platform string `json:"platform,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

type Output struct {
	Optimization        *service.OptimizeResult `json:"costOptimization"`
	RecommendationCount int                     `json:"recommendationCount"`
	HasGatherErrors     bool                    `json:"hasGatherErrors"`
}

const InputSchemaJSON = `{
  "type": "object",
  "properties": {
    "platform": {"type": "string", "enum": ["", "all", "aws", "azure", "AWS", "Azure"]},
    "strategy": {"type": "string", "enum": ["", "llm", "heuristic"]}
  }
}`

var inputSchema = validation.MustCompileJSON(InputSchemaJSON)
