// Package service is the explicit dependency context of a deployment: the
// provider gateways and the model-backed collaborators, behind the three
// operations the HTTP API, the CLI and the job workers expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/common/metrics"
	"cloudwise/internal/dispatcher"
	"cloudwise/internal/gateway"
	"cloudwise/internal/interpreter"
	"cloudwise/internal/llm"
	"cloudwise/internal/models"
	"cloudwise/internal/optimizer"
)

const (
	PlatformAll = "all"

	llmUnavailableMessage = "LLM service not initialized. Please check the language model API key."
	unsupportedMessage    = "Unsupported resource type or action"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Interpreter interface {
	Interpret(ctx context.Context, query string, platforms []string, queryContext map[string]any) (models.Command, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd models.Command, gateways map[string]gateway.Gateway, opts dispatcher.Options) (*models.Envelope, error)
}

type Analyst interface {
	Analyze(ctx context.Context, operation, errorMessage, platform, resource string) (models.Sections, error)
	AnalyzeAll(ctx context.Context, entries []models.OperationError, command models.Command)
}

type Optimizers interface {
	Get(name string) (optimizer.Strategy, error)
}

// Deps are the collaborators of a Service. Interpreter and Analyst are nil
// when no language model is configured; a provider without credentials has
// no entry in Gateways.
type Deps struct {
	Gateways    map[string]gateway.Gateway
	Interpreter Interpreter
	Dispatcher  Dispatcher
	Analyst     Analyst
	Optimizers  Optimizers
	Logger      Logger
	Now         func() time.Time
}

type Service struct {
	deps Deps
}

func New(deps Deps) *Service {
	if deps.Gateways == nil {
		deps.Gateways = map[string]gateway.Gateway{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// LLMAvailable reports whether query interpretation can run.
func (s *Service) LLMAvailable() bool {
	return s.deps.Interpreter != nil
}

// AvailableServices is the provider and model availability map returned with
// every envelope.
func (s *Service) AvailableServices() map[string]bool {
	return dispatcher.AvailableServices(s.deps.Gateways, s.LLMAvailable())
}

// Gateway returns the gateway of a platform, or nil.
func (s *Service) Gateway(platform string) gateway.Gateway {
	return s.deps.Gateways[strings.ToLower(platform)]
}

// ==========================
// Query
// ==========================

type QueryRequest struct {
	Query     string         `json:"query"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"-"`
}

// Query interprets a request and dispatches the resulting command. The
// returned envelope is non-nil whenever there is something to show the
// caller, including alongside an LLM-unavailable or unsupported-command
// error.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*models.Envelope, error) {
	if s.deps.Interpreter == nil {
		env := models.NewEnvelope()
		env.RequestID = req.RequestID
		env.Query = req.Query
		env.Message = llmUnavailableMessage
		env.Details = &models.Details{
			Status: models.StatusError,
			Reason: "No language model is configured, so the query cannot be interpreted.",
		}
		env.AvailableServices = s.AvailableServices()
		countQuery("llm_unavailable")
		return env, apperrors.NewLLMUnavailableError()
	}

	cmd, err := s.Interpret(ctx, req)
	if err != nil {
		countQuery("interpretation_failed")
		return nil, err
	}

	return s.Dispatch(ctx, req, cmd)
}

// Interpret runs only the interpreter step of Query.
func (s *Service) Interpret(ctx context.Context, req QueryRequest) (models.Command, error) {
	if s.deps.Interpreter == nil {
		return models.NewCommand(), apperrors.NewLLMUnavailableError()
	}
	cmd, err := s.deps.Interpreter.Interpret(ctx, req.Query, gateway.Platforms(), queryContext(req))
	if err != nil {
		s.deps.Logger.Warn("Query interpretation failed", map[string]interface{}{
			"requestId": req.RequestID,
			"error":     err.Error(),
		})
		return cmd, interpretationError(err)
	}
	return cmd, nil
}

// Dispatch runs a command and annotates every error entry with an analysis
// when the model is available.
func (s *Service) Dispatch(ctx context.Context, req QueryRequest, cmd models.Command) (*models.Envelope, error) {
	env, err := s.deps.Dispatcher.Dispatch(ctx, cmd, s.deps.Gateways, dispatcher.Options{
		RequestID:    req.RequestID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		LLMAvailable: s.LLMAvailable(),
	})
	if err != nil {
		if errors.Is(err, dispatcher.ErrUnsupportedCommand) {
			countQuery(models.StatusUnsupported)
			return s.unsupported(req, cmd), apperrors.NewUnsupportedCommandError(err.Error())
		}
		countQuery(models.StatusError)
		return nil, apperrors.NewRemoteServiceFailureError("dispatcher", err)
	}
	env.Query = req.Query

	if len(env.Errors) > 0 && s.deps.Analyst != nil {
		s.deps.Analyst.AnalyzeAll(ctx, env.Errors, cmd)
	}

	countQuery(outcome(env))
	s.deps.Logger.Info("Query processed", map[string]interface{}{
		"requestId": req.RequestID,
		"message":   env.Message,
		"errors":    len(env.Errors),
	})
	return env, nil
}

func (s *Service) unsupported(req QueryRequest, cmd models.Command) *models.Envelope {
	interpreted := cmd
	env := models.NewEnvelope()
	env.RequestID = req.RequestID
	env.Query = req.Query
	env.Message = unsupportedMessage
	env.CommandInterpreted = &interpreted
	env.Details = &models.Details{
		Status: models.StatusUnsupported,
		Reason: fmt.Sprintf("No operation matches resources %v with action %q.", cmd.Resources, cmd.Action),
	}
	env.AvailableServices = s.AvailableServices()
	return env
}

func queryContext(req QueryRequest) map[string]any {
	out := make(map[string]any, len(req.Context)+2)
	for k, v := range req.Context {
		out[k] = v
	}
	if req.StartDate != "" {
		out["start_date"] = req.StartDate
	}
	if req.EndDate != "" {
		out["end_date"] = req.EndDate
	}
	return out
}

func interpretationError(err error) error {
	switch {
	case errors.Is(err, interpreter.ErrEmptyQuery):
		return apperrors.NewInvalidInputError("query must not be empty")
	case errors.Is(err, llm.ErrTimeout):
		return apperrors.NewLLMTimeoutError(err)
	default:
		return apperrors.NewQueryInterpretationFailedError(err)
	}
}

func outcome(env *models.Envelope) string {
	switch {
	case len(env.Data) > 0 && len(env.Errors) == 0:
		return models.StatusSuccess
	case len(env.Data) > 0:
		return "partial"
	case len(env.Errors) > 0:
		return models.StatusError
	default:
		return models.StatusEmpty
	}
}

func countQuery(outcome string) {
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
}

// ==========================
// Error analysis
// ==========================

type AnalyzeRequest struct {
	Operation    string `json:"operation"`
	ErrorMessage string `json:"error_message"`
	Platform     string `json:"platform"`
	Resource     string `json:"resource"`
}

func (s *Service) AnalyzeError(ctx context.Context, req AnalyzeRequest) (models.Sections, error) {
	if s.deps.Analyst == nil {
		return nil, apperrors.NewLLMUnavailableError()
	}
	analysis, err := s.deps.Analyst.Analyze(ctx, req.Operation, req.ErrorMessage, req.Platform, req.Resource)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			return nil, apperrors.NewLLMTimeoutError(err)
		}
		return nil, apperrors.NewErrorAnalysisFailedError(err)
	}
	return analysis, nil
}
