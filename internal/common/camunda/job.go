// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloudwise/internal/common/errors"
	"cloudwise/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables validates raw job variables against schema and decodes
// them into out. Failures are INVALID_INPUT errors, which are never retried.
func DecodeVariables(raw string, schema *validation.Schema, out interface{}) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	result, err := schema.ValidateBytes([]byte(raw))
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	if !result.Valid {
		return errors.NewInvalidInputError("job variables: "+result.Summary()).
			WithMetadata("validation_errors", result.Errors)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode job variables: %v", err))
	}
	return nil
}

// CompleteJob sends the output object as the job's result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}
