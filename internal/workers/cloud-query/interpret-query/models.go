// internal/workers/cloud-query/interpret-query/models.go
package interpretquery

import (
	"cloudwise/internal/common/validation"
	"cloudwise/internal/models"
)

type Input struct {
	Query     string                 `json:"query"`
	StartDate string                 `json:"startDate,omitempty"`
	EndDate   string                 `json:"endDate,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

type Output struct {
	Command      models.Command `json:"command"`
	CommandEmpty bool           `json:"commandEmpty"`
	RequestID    string         `json:"requestId"`
}

// InputSchemaJSON is also published in the activity registry.
const InputSchemaJSON = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query":     {"type": "string", "minLength": 1},
    "startDate": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "endDate":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "context":   {"type": "object"},
    "requestId": {"type": "string"}
  }
}`

var inputSchema = validation.MustCompileJSON(InputSchemaJSON)
