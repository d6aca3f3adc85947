// Package gateway defines the provider-neutral operations the dispatcher
// calls. Each cloud provider has one implementation.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloudwise/internal/models"
)

const (
	PlatformAWS   = "aws"
	PlatformAzure = "azure"
)

var (
	// ErrNotFound reports a resource that does not exist for the caller.
	ErrNotFound = errors.New("RESOURCE_NOT_FOUND")
	// ErrMissingParameter reports an operation called without a required input.
	ErrMissingParameter = errors.New("MISSING_PARAMETER")
)

// Gateway is the set of read and lifecycle operations a provider exposes.
type Gateway interface {
	Platform() string
	ListInstances(ctx context.Context, q InstanceQuery) (*models.InstanceListing, error)
	ListStorage(ctx context.Context) (*models.StorageListing, error)
	GetCostAndUsage(ctx context.Context, q CostQuery) (*models.CostReport, error)
	GetMetrics(ctx context.Context, q MetricQuery) (*models.MetricSeries, error)
	GetResourceStatus(ctx context.Context, ref ResourceRef) (*models.ResourceStatus, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	Start(ctx context.Context, ref ResourceRef) (*models.ActionResult, error)
	Stop(ctx context.Context, ref ResourceRef) (*models.ActionResult, error)
	Restart(ctx context.Context, ref ResourceRef) (*models.ActionResult, error)
}

// InstanceQuery narrows a compute listing. Filters only apply to AWS, the
// resource group only to Azure.
type InstanceQuery struct {
	Filters       []models.Filter `json:"filters,omitempty"`
	Region        string          `json:"region,omitempty"`
	ResourceGroup string          `json:"resource_group,omitempty"`
}

// CostQuery is a half-open date window. Providers query Start and End;
// Timeframe only labels the window (LastWeek or LastMonth) for callers.
type CostQuery struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Timeframe string    `json:"timeframe,omitempty"`
}

// Period renders the window as dates.
func (q CostQuery) Period() models.Period {
	return models.Period{Start: q.Start.Format(DateLayout), End: q.End.Format(DateLayout)}
}

// MetricQuery selects one metric of one compute resource.
type MetricQuery struct {
	ResourceID    string    `json:"resource_id,omitempty"`
	ResourceGroup string    `json:"resource_group,omitempty"`
	ResourceName  string    `json:"resource_name,omitempty"`
	Region        string    `json:"region,omitempty"`
	MetricName    string    `json:"metric_name"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// ResourceRef identifies a compute resource: by ID on AWS, by group and name
// on Azure.
type ResourceRef struct {
	ID     string `json:"id,omitempty"`
	Group  string `json:"group,omitempty"`
	Name   string `json:"name,omitempty"`
	Region string `json:"region,omitempty"`
}

// String is the identifier used in messages and audit rows.
func (r ResourceRef) String() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.Group != "" && r.Name != "":
		return r.Group + "/" + r.Name
	default:
		return r.Name
	}
}

// DateLayout is the date format of cost windows and request parameters.
const DateLayout = "2006-01-02"

// Named windows accepted in the timeframe parameter.
const (
	TimeframeLastWeek  = "LastWeek"
	TimeframeLastMonth = "LastMonth"
)

// DisplayName is the provider's name as users write it.
func DisplayName(platform string) string {
	switch strings.ToLower(platform) {
	case PlatformAWS:
		return "AWS"
	case PlatformAzure:
		return "Azure"
	default:
		return platform
	}
}

// Platforms lists the supported providers in display form.
func Platforms() []string {
	return []string{"AWS", "Azure"}
}
