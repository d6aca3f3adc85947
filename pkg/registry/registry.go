// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"cloudwise/internal/common/errors"
	"cloudwise/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry with a fresh lastUpdated stamp.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Find returns the activity with the given task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, naming, uniqueness, timeouts, error codes
// and that every input schema compiles. All problems are returned together.
func (r *ActivityRegistry) Validate() []error {
	var problems []error
	if len(r.Activities) == 0 {
		return []error{fmt.Errorf("registry contains no activities")}
	}

	ids := map[string]bool{}
	taskTypes := map[string]bool{}
	for _, a := range r.Activities {
		label := a.ID
		if label == "" {
			label = "(unnamed)"
		}
		fail := func(format string, args ...interface{}) {
			problems = append(problems, fmt.Errorf("activity %s: %s", label, fmt.Sprintf(format, args...)))
		}

		if a.ID == "" {
			fail("missing id")
		} else if ids[a.ID] {
			fail("duplicate id")
		}
		ids[a.ID] = true

		if err := validation.ValidateActivityNaming(a.TaskType); err != nil {
			fail("task type %q: %v", a.TaskType, err)
		} else if taskTypes[a.TaskType] {
			fail("duplicate task type %q", a.TaskType)
		}
		taskTypes[a.TaskType] = true

		if a.DisplayName == "" {
			fail("missing displayName")
		}
		if a.Category == "" {
			fail("missing category")
		}
		if !implementationStatuses[a.ImplementationStatus] {
			fail("unknown implementationStatus %q", a.ImplementationStatus)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				fail("timeout %q: %v", a.Timeout, err)
			}
		}
		if a.Retries < 0 {
			fail("retries must not be negative")
		}
		for _, code := range a.ErrorCodes {
			if _, known := errors.BPMNErrorMapping[errors.ErrorCode(code)]; !known {
				fail("unknown error code %q", code)
			}
		}
		if a.InputSchema == nil {
			fail("missing inputSchema")
		} else if _, err := validation.Compile(a.InputSchema); err != nil {
			fail("inputSchema: %v", err)
		}
	}
	return problems
}

// SchemaMatches reports whether the activity's input schema is the same JSON
// document as schemaJSON.
func (a *Activity) SchemaMatches(schemaJSON string) (bool, error) {
	var want map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &want); err != nil {
		return false, fmt.Errorf("parse schema: %w", err)
	}
	// Round-trip so both sides use the same number and slice types.
	data, err := json.Marshal(a.InputSchema)
	if err != nil {
		return false, err
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		return false, err
	}
	return reflect.DeepEqual(want, got), nil
}

// Update sets one scalar field of the activity with the given id.
func (r *ActivityRegistry) Update(id, field, value string) error {
	var activity *Activity
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			activity = &r.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		if !implementationStatuses[value] {
			return fmt.Errorf("unknown implementationStatus %q", value)
		}
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "category":
		activity.Category = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

// SyncInputSchema replaces the input schema of the activity with the given
// task type. It reports whether anything changed.
func (r *ActivityRegistry) SyncInputSchema(taskType, schemaJSON string) (bool, error) {
	activity, ok := r.Find(taskType)
	if !ok {
		return false, fmt.Errorf("task type %s is not registered", taskType)
	}
	matches, err := activity.SchemaMatches(schemaJSON)
	if err != nil || matches {
		return false, err
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
		return false, err
	}
	activity.InputSchema = schema
	return true, nil
}
