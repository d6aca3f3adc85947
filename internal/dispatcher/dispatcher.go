// Package dispatcher maps a structured command onto provider gateway calls and
// assembles the response envelope.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/common/observability"
	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUnsupportedCommand = errors.New("UNSUPPORTED_COMMAND")
	ErrInvalidParameter   = errors.New("INVALID_PARAMETER")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// ActionObserver is told about every start, stop or restart request,
// successful or not.
type ActionObserver interface {
	Record(ctx context.Context, event models.ActionEvent) error
}

// CostAdvisor produces optimization sections for a cost report.
type CostAdvisor interface {
	Optimize(ctx context.Context, resourceDetails map[string]any, costData map[string]*models.CostReport) (models.Sections, error)
}

// Recorder counts dispatched operations.
type Recorder interface {
	RecordDispatch(ctx context.Context, platform, operation string)
}

type Dispatcher struct {
	logger    Logger
	observers []ActionObserver
	advisor   CostAdvisor
	recorder  Recorder
	now       func() time.Time
}

type Option func(*Dispatcher)

func WithObservers(observers ...ActionObserver) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, observers...) }
}

// WithCostAdvisor attaches optimization recommendations to cost results.
func WithCostAdvisor(advisor CostAdvisor) Option {
	return func(d *Dispatcher) { d.advisor = advisor }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(log Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: log, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Options carry per-request inputs.
type Options struct {
	RequestID    string
	StartDate    string
	EndDate      string
	LLMAvailable bool
}

// Dispatch runs every planned operation on every requested platform. Only an
// unsupported command is an error; provider failures become error entries in
// the envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd models.Command, gateways map[string]gateway.Gateway, opts Options) (*models.Envelope, error) {
	ctx, span := observability.StartSpan(ctx, "dispatcher.dispatch",
		attribute.StringSlice("cloud.platforms", cmd.Platforms),
		attribute.StringSlice("cloud.resources", cmd.Resources),
		attribute.String("cloud.action", cmd.Action),
	)

	steps := plan(cmd)
	if len(steps) == 0 {
		err := fmt.Errorf("%w: resources %v with action %q", ErrUnsupportedCommand, cmd.Resources, cmd.Action)
		observability.EndSpan(span, err)
		return nil, err
	}

	interpreted := cmd
	env := models.NewEnvelope()
	env.RequestID = opts.RequestID
	env.CommandInterpreted = &interpreted

	r := &run{d: d, env: env, opts: opts, now: d.now().UTC(), params: cmd.Parameters}
	if r.params == nil {
		r.params = models.Parameters{}
	}

	for _, platform := range targetPlatforms(cmd, gateways) {
		gw := gateways[platform]
		if gw == nil {
			r.fail(platform, "", apperrors.NewProviderNotInitializedError(gateway.DisplayName(platform)).Message)
			continue
		}
		for _, s := range steps {
			if d.recorder != nil {
				d.recorder.RecordDispatch(ctx, platform, s.Operation)
			}
			r.execute(ctx, gw, platform, s)
		}
	}

	env.AvailableServices = AvailableServices(gateways, opts.LLMAvailable)
	env.Message = r.message()

	d.logger.Info("Command dispatched", map[string]interface{}{
		"requestId":  opts.RequestID,
		"operations": Plan(cmd),
		"dataKeys":   len(env.Data),
		"errors":     len(env.Errors),
	})
	observability.EndSpan(span, nil)
	return env, nil
}

// AvailableServices reports which providers have a gateway, plus the model.
func AvailableServices(gateways map[string]gateway.Gateway, llmAvailable bool) map[string]bool {
	return map[string]bool{
		gateway.PlatformAWS:   gateways[gateway.PlatformAWS] != nil,
		gateway.PlatformAzure: gateways[gateway.PlatformAzure] != nil,
		"llm":                 llmAvailable,
	}
}

// targetPlatforms lower-cases and de-duplicates the requested platforms. A
// command naming none targets every configured gateway, or every known
// platform when none is configured.
func targetPlatforms(cmd models.Command, gateways map[string]gateway.Gateway) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range cmd.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) > 0 {
		return out
	}

	for p, gw := range gateways {
		if gw != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{gateway.PlatformAWS, gateway.PlatformAzure}
	}
	sort.Strings(out)
	return out
}

// run is the mutable state of one dispatch.
type run struct {
	d        *Dispatcher
	env      *models.Envelope
	opts     Options
	now      time.Time
	params   models.Parameters
	headline string
}

func (r *run) execute(ctx context.Context, gw gateway.Gateway, platform string, s step) {
	key := platform + "_" + Label(platform, s.Operation)

	switch s.Operation {
	case OpListInstances:
		q := instanceQuery(r.params)
		listing, err := gw.ListInstances(ctx, q)
		if err != nil {
			r.fail(platform, s.Operation, err.Error())
			return
		}
		if listing.IsEmpty() {
			details := map[string]any{}
			if platform == gateway.PlatformAzure {
				if q.ResourceGroup != "" {
					details["resource_group"] = q.ResourceGroup
				}
			} else {
				details["applied_filters"] = q.Filters
			}
			r.empty(platform, s.Operation, details)
			return
		}
		r.env.Data[key] = listing

	case OpListStorage:
		listing, err := gw.ListStorage(ctx)
		if err != nil {
			r.fail(platform, s.Operation, err.Error())
			return
		}
		if listing.IsEmpty() {
			r.empty(platform, s.Operation, nil)
			return
		}
		r.env.Data[key] = listing

	case OpGetCostAndUsage:
		q, err := CostWindow(r.params, r.opts.StartDate, r.opts.EndDate, r.now)
		if err != nil {
			r.fail(platform, s.Operation, err.Error())
			return
		}
		report, err := gw.GetCostAndUsage(ctx, q)
		if err != nil {
			r.fail(platform, s.Operation, err.Error())
			return
		}
		if report.IsEmpty() {
			r.empty(platform, s.Operation, map[string]any{"period": q.Period()})
			return
		}
		r.advise(ctx, platform, report)
		r.env.Data[key] = report

	case OpGetMetrics:
		q := metricQuery(platform, r.params, r.now)
		target := map[string]any{"metric_name": q.MetricName}
		if platform == gateway.PlatformAzure {
			target["resource_group"] = q.ResourceGroup
			target["vm_name"] = q.ResourceName
		} else {
			target["instance_id"] = q.ResourceID
		}
		series, err := gw.GetMetrics(ctx, q)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			r.notFound(platform, target)
			return
		case err != nil:
			r.fail(platform, s.Operation, err.Error())
			return
		}
		if series.IsEmpty() {
			target["time_range"] = map[string]string{
				"start": q.Start.Format(time.RFC3339),
				"end":   q.End.Format(time.RFC3339),
			}
			r.empty(platform, s.Operation, target)
			return
		}
		r.env.Data[key] = series

	case OpGetResourceStatus:
		ref := resourceRef(r.params)
		status, err := gw.GetResourceStatus(ctx, ref)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			r.notFound(platform, map[string]any{"resource": ref.String()})
			return
		case err != nil:
			r.fail(platform, s.Operation, err.Error())
			return
		}
		r.env.Data[key] = status

	case OpStart, OpStop, OpRestart:
		ref := resourceRef(r.params)
		var call func(context.Context, gateway.ResourceRef) (*models.ActionResult, error)
		switch s.Operation {
		case OpStart:
			call = gw.Start
		case OpStop:
			call = gw.Stop
		default:
			call = gw.Restart
		}
		result, err := call(ctx, ref)
		r.notify(ctx, platform, s.Operation, ref, result, err)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			r.notFound(platform, map[string]any{"resource": ref.String()})
			return
		case err != nil:
			r.fail(platform, s.Operation, err.Error())
			return
		}
		r.env.Data[key] = result

	case OpListGroups:
		groups, err := gw.ListGroups(ctx)
		if err != nil {
			r.fail(platform, s.Operation, err.Error())
			return
		}
		if len(groups) == 0 {
			r.empty(platform, s.Operation, nil)
			return
		}
		r.env.Data[key] = groups
	}
}

func (r *run) fail(platform, operation, message string) {
	r.env.Errors = append(r.env.Errors, models.OperationError{
		Key:       platform + "_error",
		Platform:  platform,
		Operation: operation,
		Message:   message,
	})
	r.d.logger.Warn("Provider operation failed", map[string]interface{}{
		"requestId": r.opts.RequestID,
		"platform":  platform,
		"operation": operation,
		"error":     message,
	})
}

func (r *run) empty(platform, operation string, extra map[string]any) {
	r.explain(models.StatusEmpty, emptyOutcome(platform, operation), platform, extra)
}

func (r *run) notFound(platform string, extra map[string]any) {
	r.explain(models.StatusError, notFoundOutcome(platform), platform, extra)
}

// explain merges one outcome into the envelope details. The first outcome
// sets the reason; an error status outranks an empty one.
func (r *run) explain(status string, o outcome, platform string, extra map[string]any) {
	if r.env.Details == nil {
		r.env.Details = &models.Details{Status: status, Reason: o.Reason}
		r.headline = o.Message
	} else if status == models.StatusError && r.env.Details.Status != models.StatusError {
		r.env.Details.Status = status
		r.env.Details.Reason = o.Reason
		r.headline = o.Message
	}
	r.env.Details.AddReasons(o.Reasons...)
	for k, v := range extra {
		if r.env.Details.Context == nil {
			r.env.Details.Context = map[string]any{}
		}
		r.env.Details.Context[platform+"_"+k] = v
	}
}

// advise attaches optimization sections to a cost report. Failures are
// logged only.
func (r *run) advise(ctx context.Context, platform string, report *models.CostReport) {
	if r.d.advisor == nil {
		return
	}
	sections, err := r.d.advisor.Optimize(ctx,
		map[string]any{"costs": report},
		map[string]*models.CostReport{platform: report},
	)
	if err != nil {
		r.d.logger.Debug("Cost optimization skipped", map[string]interface{}{
			"platform": platform,
			"error":    err.Error(),
		})
		return
	}
	if !sections.IsEmpty() {
		report.Optimization = &sections
	}
}

func (r *run) notify(ctx context.Context, platform, action string, ref gateway.ResourceRef, result *models.ActionResult, err error) {
	if len(r.d.observers) == 0 {
		return
	}
	event := models.ActionEvent{
		ID:         uuid.NewString(),
		RequestID:  r.opts.RequestID,
		Platform:   platform,
		ResourceID: ref.String(),
		Action:     action,
		OccurredAt: r.now,
	}
	switch {
	case err != nil:
		event.Status = models.StatusError
		event.Message = err.Error()
	case result != nil:
		event.Status = result.Status
		event.Message = result.Message
		event.PreviousState = result.PreviousState
		event.CurrentState = result.CurrentState
	}

	for _, o := range r.d.observers {
		if recErr := o.Record(ctx, event); recErr != nil {
			r.d.logger.Warn("Action observer failed", map[string]interface{}{
				"eventId": event.ID,
				"error":   recErr.Error(),
			})
		}
	}
}

func (r *run) message() string {
	switch {
	case len(r.env.Data) > 0 && len(r.env.Errors) == 0:
		return "Success"
	case len(r.env.Data) > 0:
		return "Partial success"
	case r.env.Details != nil:
		return r.headline
	case len(r.env.Errors) > 0:
		return "All operations failed"
	default:
		return "No results"
	}
}
