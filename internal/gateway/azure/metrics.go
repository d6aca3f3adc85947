// internal/gateway/azure/metrics.go
package azure

import (
	"context"
	"sort"
	"time"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
)

const metricInterval = "PT5M"

// GetMetrics reads an Azure Monitor platform metric of a VM as five minute
// averages.
func (g *Gateway) GetMetrics(ctx context.Context, q gateway.MetricQuery) (*models.MetricSeries, error) {
	ref := gateway.ResourceRef{Group: q.ResourceGroup, Name: q.ResourceName}
	if err := requireVM(ref); err != nil {
		return nil, err
	}

	var series *models.MetricSeries
	err := g.observe(ctx, "get_metrics", func(ctx context.Context) error {
		uri := g.vmURI(q.ResourceGroup, q.ResourceName)
		resp, err := g.clients.Monitor.Metrics(ctx, uri, &armmonitor.MetricsClientListOptions{
			Timespan:    to.Ptr(q.Start.UTC().Format(time.RFC3339) + "/" + q.End.UTC().Format(time.RFC3339)),
			Interval:    to.Ptr(metricInterval),
			Metricnames: to.Ptr(q.MetricName),
			Aggregation: to.Ptr("Average"),
		})
		if err != nil {
			return wrapNotFound(ref, err)
		}

		series = &models.MetricSeries{
			ResourceID: uri,
			MetricName: q.MetricName,
			Statistic:  "Average",
			Start:      q.Start,
			End:        q.End,
			Points:     []models.MetricPoint{},
		}
		for _, m := range resp.Value {
			if m == nil {
				continue
			}
			unit := ""
			if m.Unit != nil {
				unit = string(*m.Unit)
				series.Unit = unit
			}
			for _, ts := range m.Timeseries {
				if ts == nil {
					continue
				}
				for _, v := range ts.Data {
					if v == nil || v.TimeStamp == nil || v.Average == nil {
						continue
					}
					series.Points = append(series.Points, models.MetricPoint{
						Timestamp: *v.TimeStamp,
						Value:     *v.Average,
						Unit:      unit,
					})
				}
			}
		}
		sort.Slice(series.Points, func(i, j int) bool {
			return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
		})
		return nil
	})
	return series, err
}
