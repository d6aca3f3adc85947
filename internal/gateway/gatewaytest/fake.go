// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"
)

// Call records one operation invocation and its argument.
type Call struct {
	Operation string
	Arg       any
}

// Fake returns canned results. A non-nil entry in Errors for an operation
// name makes that operation fail.
type Fake struct {
	Name string

	Instances *models.InstanceListing
	Storage   *models.StorageListing
	Costs     *models.CostReport
	Metrics   *models.MetricSeries
	Status    *models.ResourceStatus
	Groups    []models.Group
	Action    *models.ActionResult

	Errors map[string]error

	mu    sync.Mutex
	calls []Call
}

var _ gateway.Gateway = (*Fake)(nil)

// New returns a fake with empty successful results for every read.
func New(platform string) *Fake {
	return &Fake{
		Name:      platform,
		Instances: models.NewInstanceListing(nil, nil),
		Storage:   models.NewStorageListing(nil, nil),
		Costs:     models.NewCostReport(models.Period{}, "USD"),
		Metrics:   &models.MetricSeries{Points: []models.MetricPoint{}},
		Status:    &models.ResourceStatus{Statuses: []models.StatusEntry{}},
		Groups:    []models.Group{},
		Errors:    map[string]error{},
	}
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Operations returns the recorded operation names in order.
func (f *Fake) Operations() []string {
	var ops []string
	for _, c := range f.Calls() {
		ops = append(ops, c.Operation)
	}
	return ops
}

func (f *Fake) record(op string, arg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Operation: op, Arg: arg})
	return f.Errors[op]
}

func (f *Fake) Platform() string { return f.Name }

func (f *Fake) ListInstances(ctx context.Context, q gateway.InstanceQuery) (*models.InstanceListing, error) {
	if err := f.record("list_instances", q); err != nil {
		return nil, err
	}
	return f.Instances, nil
}

func (f *Fake) ListStorage(ctx context.Context) (*models.StorageListing, error) {
	if err := f.record("list_storage", nil); err != nil {
		return nil, err
	}
	return f.Storage, nil
}

func (f *Fake) GetCostAndUsage(ctx context.Context, q gateway.CostQuery) (*models.CostReport, error) {
	if err := f.record("get_cost_and_usage", q); err != nil {
		return nil, err
	}
	return f.Costs, nil
}

func (f *Fake) GetMetrics(ctx context.Context, q gateway.MetricQuery) (*models.MetricSeries, error) {
	if err := f.record("get_metrics", q); err != nil {
		return nil, err
	}
	return f.Metrics, nil
}

func (f *Fake) GetResourceStatus(ctx context.Context, ref gateway.ResourceRef) (*models.ResourceStatus, error) {
	if err := f.record("get_resource_status", ref); err != nil {
		return nil, err
	}
	return f.Status, nil
}

func (f *Fake) ListGroups(ctx context.Context) ([]models.Group, error) {
	if err := f.record("list_groups", nil); err != nil {
		return nil, err
	}
	return f.Groups, nil
}

func (f *Fake) Start(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return f.act("start", ref)
}

func (f *Fake) Stop(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return f.act("stop", ref)
}

func (f *Fake) Restart(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return f.act("restart", ref)
}

func (f *Fake) act(action string, ref gateway.ResourceRef) (*models.ActionResult, error) {
	if err := f.record(action, ref); err != nil {
		return nil, err
	}
	if f.Action != nil {
		return f.Action, nil
	}
	return &models.ActionResult{
		ResourceID: ref.String(),
		Action:     action,
		Status:     models.StatusSuccess,
	}, nil
}
