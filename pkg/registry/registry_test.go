// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"

	analyzeerror "cloudwise/internal/workers/cloud-query/analyze-error"
	dispatchcommand "cloudwise/internal/workers/cloud-query/dispatch-command"
	interpretquery "cloudwise/internal/workers/cloud-query/interpret-query"
	optimizecosts "cloudwise/internal/workers/cloud-query/optimize-costs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryFile = "../../configs/activity-registry.json"

func TestShippedRegistry(t *testing.T) {
	reg, err := LoadRegistry(registryFile)
	require.NoError(t, err)
	assert.Empty(t, reg.Validate())

	workers := []struct {
		taskType  string
		configKey string
		schema    string
	}{
		{interpretquery.TaskType, interpretquery.ConfigKey, interpretquery.InputSchemaJSON},
		{dispatchcommand.TaskType, dispatchcommand.ConfigKey, dispatchcommand.InputSchemaJSON},
		{analyzeerror.TaskType, analyzeerror.ConfigKey, analyzeerror.InputSchemaJSON},
		{optimizecosts.TaskType, optimizecosts.ConfigKey, optimizecosts.InputSchemaJSON},
	}
	require.Len(t, reg.Activities, len(workers))

	for _, w := range workers {
		t.Run(w.taskType, func(t *testing.T) {
			activity, ok := reg.Find(w.taskType)
			require.True(t, ok)
			assert.Equal(t, w.configKey, activity.ConfigKey)

			matches, err := activity.SchemaMatches(w.schema)
			require.NoError(t, err)
			assert.True(t, matches, "registry input schema differs from the worker's")
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Activity {
		return Activity{
			ID:                   "interpret-cloud-query",
			DisplayName:          "Interpret Cloud Query",
			Category:             "cloud-query",
			TaskType:             "cloud.query.interpret",
			ImplementationStatus: "completed",
			InputSchema:          map[string]interface{}{"type": "object"},
			ErrorCodes:           []string{"LLM_TIMEOUT"},
			Timeout:              "45s",
			Retries:              3,
		}
	}

	tests := []struct {
		name     string
		mutate   func(*ActivityRegistry)
		problems []string
	}{
		{
			name:   "valid",
			mutate: func(*ActivityRegistry) {},
		},
		{
			name: "bad task type and timeout",
			mutate: func(r *ActivityRegistry) {
				r.Activities[0].TaskType = "interpret-cloud-query"
				r.Activities[0].Timeout = "soon"
			},
			problems: []string{"task type", "timeout"},
		},
		{
			name: "duplicates",
			mutate: func(r *ActivityRegistry) {
				r.Activities = append(r.Activities, valid())
			},
			problems: []string{"duplicate id", "duplicate task type"},
		},
		{
			name: "unknown error code and status",
			mutate: func(r *ActivityRegistry) {
				r.Activities[0].ErrorCodes = []string{"DISK_FULL"}
				r.Activities[0].ImplementationStatus = "done"
			},
			problems: []string{"implementationStatus", "error code"},
		},
		{
			name: "schema does not compile",
			mutate: func(r *ActivityRegistry) {
				r.Activities[0].InputSchema = map[string]interface{}{"type": 12}
			},
			problems: []string{"inputSchema"},
		},
		{
			name: "empty registry",
			mutate: func(r *ActivityRegistry) {
				r.Activities = nil
			},
			problems: []string{"no activities"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{valid()}}
			tt.mutate(reg)

			problems := reg.Validate()
			require.Len(t, problems, len(tt.problems))
			for i, want := range tt.problems {
				assert.Contains(t, problems[i].Error(), want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "2.0.0", Activities: []Activity{{ID: "a", TaskType: "cloud.query.interpret"}}}

	require.NoError(t, reg.Save(path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)

	_, ok := loaded.Find("cloud.cost.optimize")
	assert.False(t, ok)
}

func TestSchemaMatches(t *testing.T) {
	a := &Activity{InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"query"},
	}}

	ok, err := a.SchemaMatches(`{"required": ["query"], "type": "object"}`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.SchemaMatches(`{"type": "object"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.SchemaMatches(`{`)
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		field    string
		value    string
		wantErr  string
		validate func(*testing.T, *Activity)
	}{
		{
			name: "status", id: "a", field: "status", value: "verified",
			validate: func(t *testing.T, a *Activity) { assert.Equal(t, "verified", a.ImplementationStatus) },
		},
		{
			name: "retries", id: "a", field: "retries", value: "5",
			validate: func(t *testing.T, a *Activity) { assert.Equal(t, 5, a.Retries) },
		},
		{name: "unknown status", id: "a", field: "status", value: "done", wantErr: "implementationStatus"},
		{name: "bad timeout", id: "a", field: "timeout", value: "later", wantErr: "invalid timeout"},
		{name: "bad retries", id: "a", field: "retries", value: "many", wantErr: "invalid retries"},
		{name: "unknown field", id: "a", field: "taskType", value: "x.y.z", wantErr: "unknown field"},
		{name: "unknown id", id: "b", field: "version", value: "2.0.0", wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{{ID: "a", TaskType: "cloud.query.interpret"}}}
			err := reg.Update(tt.id, tt.field, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, &reg.Activities[0])
		})
	}
}

func TestSyncInputSchema(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{{
		ID:          "a",
		TaskType:    "cloud.query.interpret",
		InputSchema: map[string]interface{}{"type": "object"},
	}}}

	changed, err := reg.SyncInputSchema("cloud.query.interpret", `{"type":"object","required":["query"]}`)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []interface{}{"query"}, reg.Activities[0].InputSchema["required"])

	changed, err = reg.SyncInputSchema("cloud.query.interpret", `{"required":["query"],"type":"object"}`)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = reg.SyncInputSchema("cloud.cost.optimize", `{}`)
	assert.Error(t, err)
}
