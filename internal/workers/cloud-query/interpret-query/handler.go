// internal/workers/cloud-query/interpret-query/handler.go
package interpretquery

import (
	"context"
	"fmt"
	"time"

	"cloudwise/internal/common/camunda"
	"cloudwise/internal/common/config"
	"cloudwise/internal/common/errors"
	"cloudwise/internal/common/logger"
	"cloudwise/internal/common/metrics"
	"cloudwise/internal/models"
	"cloudwise/internal/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const TaskType = "cloud.query.interpret"

// Interpreter is the part of the query service this worker drives.
type Interpreter interface {
	Interpret(ctx context.Context, req service.QueryRequest) (models.Command, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	service   Interpreter
	errors    *errors.ErrorHandler
	jobWorker *camunda.Worker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Service      Interpreter
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", ConfigKey, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: query service is required", ConfigKey)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:  workerConfig,
		logger:  loggerInstance,
		service: opts.Service,
		errors:  errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Interpreting cloud query", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Query interpreted", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"requestId": output.RequestID,
		"platforms": output.Command.Platforms,
		"resources": output.Command.Resources,
		"action":    output.Command.Action,
	})
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job.GetVariables(), inputSchema, &input); err != nil {
		return nil, err
	}
	if input.RequestID == "" {
		input.RequestID = fmt.Sprintf("job-%d", job.GetKey())
	}
	return &input, nil
}

// Execute turns the query into a structured command.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	cmd, err := h.service.Interpret(ctx, service.QueryRequest{
		Query:     input.Query,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Context:   input.Context,
		RequestID: input.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		Command:      cmd,
		CommandEmpty: cmd.IsEmpty(),
		RequestID:    input.RequestID,
	}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Register opens the job subscription. It is a no-op when the worker is
// disabled.
func (h *Handler) Register(client zbc.Client) {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return
	}
	h.jobWorker = camunda.StartWorker(client, TaskType, h.config.MaxJobsActive, h.config.Timeout, h, h.logger)
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}
