// internal/gateway/aws/metrics.go
package aws

import (
	"context"
	"sort"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

const (
	metricNamespace = "AWS/EC2"
	metricPeriod    = 300
)

// GetMetrics returns the average of an EC2 metric in five minute buckets. The
// instance is looked up first so a wrong ID is reported as not found rather
// than as an empty series.
func (g *Gateway) GetMetrics(ctx context.Context, q gateway.MetricQuery) (*models.MetricSeries, error) {
	if q.ResourceID == "" {
		return nil, missing("instance-id")
	}

	var series *models.MetricSeries
	err := g.observe(ctx, "get_metrics", func(ctx context.Context) error {
		region := g.regionOr(q.Region)
		if err := g.ensureInstance(ctx, region, q.ResourceID); err != nil {
			return err
		}

		out, err := g.clients.CloudWatch(region).GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String(metricNamespace),
			MetricName: aws.String(q.MetricName),
			Dimensions: []cwtypes.Dimension{{Name: aws.String("InstanceId"), Value: aws.String(q.ResourceID)}},
			StartTime:  aws.Time(q.Start),
			EndTime:    aws.Time(q.End),
			Period:     aws.Int32(metricPeriod),
			Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
		})
		if err != nil {
			return err
		}

		series = &models.MetricSeries{
			ResourceID: q.ResourceID,
			MetricName: q.MetricName,
			Statistic:  string(cwtypes.StatisticAverage),
			Start:      q.Start,
			End:        q.End,
			Points:     make([]models.MetricPoint, 0, len(out.Datapoints)),
		}
		for _, dp := range out.Datapoints {
			point := models.MetricPoint{
				Timestamp: aws.ToTime(dp.Timestamp),
				Value:     aws.ToFloat64(dp.Average),
				Unit:      string(dp.Unit),
			}
			series.Unit = point.Unit
			series.Points = append(series.Points, point)
		}
		sort.Slice(series.Points, func(i, j int) bool {
			return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
		})
		return nil
	})
	return series, err
}

func (g *Gateway) ensureInstance(ctx context.Context, region, id string) error {
	out, err := g.clients.EC2(region).DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		if isNotFound(err) {
			return notFound(id, err)
		}
		return err
	}
	for _, res := range out.Reservations {
		if len(res.Instances) > 0 {
			return nil
		}
	}
	return notFound(id, nil)
}
