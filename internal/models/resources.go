// internal/models/resources.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instance is a compute resource: an EC2 instance or an Azure VM.
type Instance struct {
	ID                string            `json:"id"`
	Name              string            `json:"name,omitempty"`
	Type              string            `json:"type,omitempty"`
	State             string            `json:"state,omitempty"`
	OSType            string            `json:"os_type,omitempty"`
	ProvisioningState string            `json:"provisioning_state,omitempty"`
	Location          string            `json:"location,omitempty"`
	AvailabilityZone  string            `json:"availability_zone,omitempty"`
	ResourceGroup     string            `json:"resource_group,omitempty"`
	PrivateIP         string            `json:"private_ip,omitempty"`
	PublicIP          string            `json:"public_ip,omitempty"`
	LaunchTime        *time.Time        `json:"launch_time,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// InstanceListing groups instances by region (AWS) or location (Azure).
type InstanceListing struct {
	Status   string                `json:"status"`
	Regions  map[string][]Instance `json:"regions"`
	Total    int                   `json:"total_instances"`
	Warnings []string              `json:"warnings,omitempty"`
}

// NewInstanceListing builds a listing and computes its totals and status.
func NewInstanceListing(regions map[string][]Instance, warnings []string) *InstanceListing {
	l := &InstanceListing{Regions: map[string][]Instance{}, Warnings: warnings}
	for region, instances := range regions {
		if len(instances) == 0 {
			continue
		}
		l.Regions[region] = instances
		l.Total += len(instances)
	}
	l.Status = StatusSuccess
	if l.Total == 0 {
		l.Status = StatusEmpty
	}
	return l
}

func (l *InstanceListing) IsEmpty() bool { return l == nil || l.Total == 0 }

// Bucket is a storage container: an S3 bucket or an Azure storage account.
type Bucket struct {
	Name              string            `json:"name"`
	Region            string            `json:"region,omitempty"`
	CreationDate      *time.Time        `json:"creation_date,omitempty"`
	Size              int64             `json:"size"`
	ObjectCount       int64             `json:"object_count"`
	Kind              string            `json:"kind,omitempty"`
	SKU               string            `json:"sku,omitempty"`
	ResourceGroup     string            `json:"resource_group,omitempty"`
	ProvisioningState string            `json:"provisioning_state,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// StorageListing groups storage containers by region. A bucket that could not
// be inspected is either skipped or kept with zero totals; either way one
// warning is recorded for it.
type StorageListing struct {
	Status       string              `json:"status"`
	Regions      map[string][]Bucket `json:"regions"`
	Total        int                 `json:"total_buckets"`
	TotalSize    int64               `json:"total_size"`
	TotalObjects int64               `json:"total_objects"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// NewStorageListing builds a listing and computes its totals and status.
func NewStorageListing(buckets []Bucket, warnings []string) *StorageListing {
	l := &StorageListing{Regions: map[string][]Bucket{}, Warnings: warnings}
	for _, b := range buckets {
		region := b.Region
		if region == "" {
			region = "unknown"
		}
		l.Regions[region] = append(l.Regions[region], b)
		l.Total++
		l.TotalSize += b.Size
		l.TotalObjects += b.ObjectCount
	}
	l.Status = StatusSuccess
	if l.Total == 0 {
		l.Status = StatusEmpty
	}
	return l
}

func (l *StorageListing) IsEmpty() bool { return l == nil || l.Total == 0 }

// Period is an inclusive start / exclusive end date pair (YYYY-MM-DD).
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CostReport is spend over a period broken down several ways.
type CostReport struct {
	Period                  Period                                `json:"period"`
	Currency                string                                `json:"currency"`
	TotalCost               decimal.Decimal                       `json:"total_cost"`
	CostsByCategory         map[string]decimal.Decimal            `json:"costs_by_category"`
	CostsByLocation         map[string]decimal.Decimal            `json:"costs_by_location"`
	CostsByLocationCategory map[string]map[string]decimal.Decimal `json:"costs_by_location_category,omitempty"`
	CostsByResource         map[string]decimal.Decimal            `json:"costs_by_resource,omitempty"`
	Optimization            *Sections                             `json:"optimization_recommendations,omitempty"`
	Warnings                []string                              `json:"warnings,omitempty"`
}

// NewCostReport returns a report with every map allocated.
func NewCostReport(period Period, currency string) *CostReport {
	return &CostReport{
		Period:                  period,
		Currency:                currency,
		TotalCost:               decimal.Zero,
		CostsByCategory:         map[string]decimal.Decimal{},
		CostsByLocation:         map[string]decimal.Decimal{},
		CostsByLocationCategory: map[string]map[string]decimal.Decimal{},
		CostsByResource:         map[string]decimal.Decimal{},
	}
}

// Add accumulates one amount under a category and location.
func (r *CostReport) Add(category, location string, amount decimal.Decimal) {
	if category == "" {
		category = "unknown"
	}
	if location == "" {
		location = "global"
	}
	r.TotalCost = r.TotalCost.Add(amount)
	r.CostsByCategory[category] = r.CostsByCategory[category].Add(amount)
	r.CostsByLocation[location] = r.CostsByLocation[location].Add(amount)
	if r.CostsByLocationCategory[location] == nil {
		r.CostsByLocationCategory[location] = map[string]decimal.Decimal{}
	}
	r.CostsByLocationCategory[location][category] = r.CostsByLocationCategory[location][category].Add(amount)
}

// AddResource accumulates spend attributed to a single resource.
func (r *CostReport) AddResource(resourceID string, amount decimal.Decimal) {
	if resourceID == "" {
		return
	}
	r.CostsByResource[resourceID] = r.CostsByResource[resourceID].Add(amount)
}

func (r *CostReport) IsEmpty() bool {
	return r == nil || (len(r.CostsByCategory) == 0 && r.TotalCost.IsZero())
}

// MetricPoint is one datapoint of a metric series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
}

// MetricSeries is a time-ordered metric for one resource.
type MetricSeries struct {
	ResourceID string        `json:"resource_id"`
	MetricName string        `json:"metric_name"`
	Statistic  string        `json:"statistic,omitempty"`
	Unit       string        `json:"unit,omitempty"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Points     []MetricPoint `json:"datapoints"`
}

func (m *MetricSeries) IsEmpty() bool { return m == nil || len(m.Points) == 0 }

// StatusEntry is one line of a resource's status view.
type StatusEntry struct {
	Code          string `json:"code"`
	Level         string `json:"level,omitempty"`
	DisplayStatus string `json:"display_status,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ResourceStatus is the current health of a single compute resource.
type ResourceStatus struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	State       string        `json:"state,omitempty"`
	Statuses    []StatusEntry `json:"statuses"`
	LastUpdated time.Time     `json:"last_updated"`
}

// Group is an Azure resource group or an AWS resource group.
type Group struct {
	ID                string            `json:"id,omitempty"`
	Name              string            `json:"name"`
	Location          string            `json:"location,omitempty"`
	ProvisioningState string            `json:"provisioning_state,omitempty"`
	Description       string            `json:"description,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// ActionResult reports a start, stop or restart request.
type ActionResult struct {
	ResourceID    string `json:"resource_id"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	PreviousState string `json:"previous_state,omitempty"`
	CurrentState  string `json:"current_state,omitempty"`
}
