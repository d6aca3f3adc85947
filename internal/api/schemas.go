// internal/api/schemas.go
package api

import "cloudwise/internal/common/validation"

var (
	querySchema = validation.MustCompileJSON(`{
		"type": "object",
		"required": ["query"],
		"properties": {
			"query":      {"type": "string", "minLength": 1},
			"start_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"end_date":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"context":    {"type": "object"}
		}
	}`)

	analyzeSchema = validation.MustCompileJSON(`{
		"type": "object",
		"required": ["operation", "error_message", "platform", "resource"],
		"properties": {
			"operation":     {"type": "string"},
			"error_message": {"type": "string", "minLength": 1},
			"platform":      {"type": "string"},
			"resource":      {"type": "string"}
		}
	}`)

	optimizeSchema = validation.MustCompileJSON(`{
		"type": "object",
		"properties": {
			"platform": {"type": "string"},
			"strategy": {"type": "string", "enum": ["", "llm", "heuristic"]}
		}
	}`)
)
