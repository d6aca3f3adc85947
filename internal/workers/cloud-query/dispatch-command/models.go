// internal/workers/cloud-query/dispatch-command/models.go
package dispatchcommand

import (
	"cloudwise/internal/common/validation"
	"cloudwise/internal/models"
)

type Input struct {
	Query     string         `json:"query,omitempty"`
	Command   models.Command `json:"command"`
	StartDate string         `json:"startDate,omitempty"`
	EndDate   string         `json:"endDate,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

type Output struct {
	Result        *models.Envelope `json:"queryResult"`
	ResultMessage string           `json:"resultMessage"`
	ResultKeys    []string         `json:"resultKeys"`
	HasErrors     bool             `json:"hasErrors"`
}

// Platforms and resources may arrive as a single string; the command decoder
// accepts both.
const InputSchemaJSON = `{
  "type": "object",
  "required": ["command"],
  "properties": {
    "query": {"type": "string"},
    "command": {
      "type": "object",
      "required": ["resources", "action"],
      "properties": {
        "platforms":  {"type": ["array", "string"]},
        "resources":  {"type": ["array", "string"]},
        "action":     {"type": "string"},
        "parameters": {"type": "object"}
      }
    },
    "startDate": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "endDate":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "requestId": {"type": "string"}
  }
}`

var inputSchema = validation.MustCompileJSON(InputSchemaJSON)
