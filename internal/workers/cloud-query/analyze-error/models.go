// internal/workers/cloud-query/analyze-error/models.go
package analyzeerror

import (
	"cloudwise/internal/common/validation"
	"cloudwise/internal/models"
)

type Input struct {
	Operation    string `json:"operation"`
	ErrorMessage string `json:"errorMessage"`
	Platform     string `json:"platform"`
	Resource     string `json:"resource"`
}

type Output struct {
	Analysis     models.Sections `json:"errorAnalysis"`
	HasSolutions bool            `json:"hasSolutions"`
}

const InputSchemaJSON = `{
  "type": "object",
  "required": ["operation", "errorMessage", "platform", "resource"],
  "properties": {
    "operation":    {"type": "string", "minLength": 1},
    "errorMessage": {"type": "string", "minLength": 1},
    "platform":     {"type": "string", "minLength": 1},
    "resource":     {"type": "string"}
  }
}`

var inputSchema = validation.MustCompileJSON(InputSchemaJSON)
