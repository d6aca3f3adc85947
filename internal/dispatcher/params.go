// internal/dispatcher/params.go
package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"
)

const (
	defaultCostWindowDays = 30
	metricsWindow         = 24 * time.Hour

	defaultAWSMetric   = "CPUUtilization"
	defaultAzureMetric = "Percentage CPU"
)

// reservedKeys are parameters that steer dispatch and are never sent to AWS
// as filters.
var reservedKeys = map[string]bool{
	"region":         true,
	"regions":        true,
	"resource_group": true,
	"vm_name":        true,
	"timeframe":      true,
	"start_date":     true,
	"end_date":       true,
	"metric_name":    true,
	"filters":        true,
	"name":           true,
}

// ToFilters converts command parameters into provider filters ordered by
// name. Empty values are dropped.
func ToFilters(params models.Parameters) []models.Filter {
	filters := []models.Filter{}
	for _, key := range params.Keys() {
		if reservedKeys[key] {
			continue
		}
		var values []string
		for _, v := range params[key].Values() {
			v = strings.TrimSpace(v)
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		filters = append(filters, models.Filter{Name: key, Values: values})
	}
	return filters
}

func instanceQuery(params models.Parameters) gateway.InstanceQuery {
	return gateway.InstanceQuery{
		Filters:       ToFilters(params),
		Region:        params.Get("region"),
		ResourceGroup: params.Get("resource_group"),
	}
}

// CostWindow derives the cost query from explicit dates (request values win
// over command parameters), a named timeframe, or the trailing 30 days.
func CostWindow(params models.Parameters, startDate, endDate string, now time.Time) (gateway.CostQuery, error) {
	if startDate == "" {
		startDate = params.Get("start_date")
	}
	if endDate == "" {
		endDate = params.Get("end_date")
	}

	var q gateway.CostQuery
	switch {
	case startDate != "" || endDate != "":
		end := now
		if endDate != "" {
			t, err := time.ParseInLocation(gateway.DateLayout, endDate, now.Location())
			if err != nil {
				return q, fmt.Errorf("%w: end_date %q is not YYYY-MM-DD", ErrInvalidParameter, endDate)
			}
			end = t
		}
		start := end.AddDate(0, 0, -defaultCostWindowDays)
		if startDate != "" {
			t, err := time.ParseInLocation(gateway.DateLayout, startDate, now.Location())
			if err != nil {
				return q, fmt.Errorf("%w: start_date %q is not YYYY-MM-DD", ErrInvalidParameter, startDate)
			}
			start = t
		}
		if !start.Before(end) {
			return q, fmt.Errorf("%w: start_date must be before end_date", ErrInvalidParameter)
		}
		q.Start, q.End = start, end
	default:
		switch strings.ToLower(params.Get("timeframe")) {
		case strings.ToLower(gateway.TimeframeLastWeek):
			q.Start = now.AddDate(0, 0, -7)
		case strings.ToLower(gateway.TimeframeLastMonth):
			q.Start = now.AddDate(0, 0, -30)
		default:
			q.Start = now.AddDate(0, 0, -defaultCostWindowDays)
		}
		q.End = now
	}

	q.Timeframe = gateway.TimeframeLastWeek
	if q.End.Sub(q.Start) >= defaultCostWindowDays*24*time.Hour {
		q.Timeframe = gateway.TimeframeLastMonth
	}
	return q, nil
}

func metricQuery(platform string, params models.Parameters, now time.Time) gateway.MetricQuery {
	name := unquote(params.Get("metric_name"))
	if name == "" {
		name = defaultAWSMetric
		if platform == gateway.PlatformAzure {
			name = defaultAzureMetric
		}
	}
	return gateway.MetricQuery{
		ResourceID:    instanceID(params),
		ResourceGroup: params.Get("resource_group"),
		ResourceName:  vmName(params),
		Region:        params.Get("region"),
		MetricName:    name,
		Start:         now.Add(-metricsWindow),
		End:           now,
	}
}

func resourceRef(params models.Parameters) gateway.ResourceRef {
	return gateway.ResourceRef{
		ID:     instanceID(params),
		Group:  params.Get("resource_group"),
		Name:   vmName(params),
		Region: params.Get("region"),
	}
}

func instanceID(params models.Parameters) string {
	for _, key := range []string{"instance-id", "instance_id", "instance"} {
		if v := unquote(params.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

func vmName(params models.Parameters) string {
	if v := unquote(params.Get("vm_name")); v != "" {
		return v
	}
	return unquote(params.Get("name"))
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
