// internal/gateway/aws/cost.go
package aws

import (
	"context"
	"fmt"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
)

const costMetric = "UnblendedCost"

// GetCostAndUsage returns monthly unblended cost grouped by region and
// service. Cost Explorer has no per-resource breakdown without resource-level
// data enabled, so CostsByResource stays empty.
func (g *Gateway) GetCostAndUsage(ctx context.Context, q gateway.CostQuery) (*models.CostReport, error) {
	var report *models.CostReport
	err := g.observe(ctx, "get_cost_and_usage", func(ctx context.Context) error {
		period := q.Period()
		input := &costexplorer.GetCostAndUsageInput{
			TimePeriod: &types.DateInterval{
				Start: aws.String(period.Start),
				End:   aws.String(period.End),
			},
			Granularity: types.GranularityMonthly,
			Metrics:     []string{costMetric},
			GroupBy: []types.GroupDefinition{
				{Type: types.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
				{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			},
		}

		report = models.NewCostReport(period, "USD")
		for {
			out, err := g.clients.CostExplorer.GetCostAndUsage(ctx, input)
			if err != nil {
				return err
			}
			for _, result := range out.ResultsByTime {
				for _, group := range result.Groups {
					if err := addGroup(report, group); err != nil {
						report.Warnings = append(report.Warnings, err.Error())
					}
				}
			}
			if aws.ToString(out.NextPageToken) == "" {
				break
			}
			input.NextPageToken = out.NextPageToken
		}
		return nil
	})
	return report, err
}

func addGroup(report *models.CostReport, group types.Group) error {
	metric, ok := group.Metrics[costMetric]
	if !ok {
		return nil
	}
	amount, err := decimal.NewFromString(aws.ToString(metric.Amount))
	if err != nil {
		return fmt.Errorf("unparseable amount %q: %w", aws.ToString(metric.Amount), err)
	}

	var region, service string
	if len(group.Keys) > 0 {
		region = group.Keys[0]
	}
	if len(group.Keys) > 1 {
		service = group.Keys[1]
	}
	if region == "NoRegion" {
		region = "global"
	}
	if unit := aws.ToString(metric.Unit); unit != "" {
		report.Currency = unit
	}
	report.Add(service, region, amount)
	return nil
}
