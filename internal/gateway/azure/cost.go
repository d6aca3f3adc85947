// internal/gateway/azure/cost.go
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/shopspring/decimal"
)

const (
	dimService  = "ServiceName"
	dimLocation = "ResourceLocation"
	dimResource = "ResourceId"
)

// GetCostAndUsage runs two actual-cost queries over the window: one grouped
// by service and location, one grouped by resource. A failure of the
// per-resource query only adds a warning.
func (g *Gateway) GetCostAndUsage(ctx context.Context, q gateway.CostQuery) (*models.CostReport, error) {
	var report *models.CostReport
	err := g.observe(ctx, "get_cost_and_usage", func(ctx context.Context) error {
		result, err := g.clients.Cost.Query(ctx, g.scope(), costDefinition(q, dimService, dimLocation))
		if err != nil {
			return err
		}

		report = models.NewCostReport(q.Period(), "USD")
		table := newCostTable(result)
		for _, row := range table.rows {
			amount, err := toDecimal(table.value(row, table.cost, 0))
			if err != nil {
				report.Warnings = append(report.Warnings, err.Error())
				continue
			}
			if currency := table.text(row, table.currency, -1); currency != "" {
				report.Currency = currency
			}
			report.Add(
				table.text(row, table.column(dimService), 2),
				table.text(row, table.column(dimLocation), 3),
				amount,
			)
		}

		byResource, err := g.clients.Cost.Query(ctx, g.scope(), costDefinition(q, dimResource))
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("per-resource costs unavailable: %v", err))
			return nil
		}
		table = newCostTable(byResource)
		for _, row := range table.rows {
			amount, err := toDecimal(table.value(row, table.cost, 0))
			if err != nil {
				continue
			}
			report.AddResource(strings.ToLower(table.text(row, table.column(dimResource), 2)), amount)
		}
		return nil
	})
	return report, err
}

func costDefinition(q gateway.CostQuery, dimensions ...string) armcostmanagement.QueryDefinition {
	grouping := make([]*armcostmanagement.QueryGrouping, 0, len(dimensions))
	for _, d := range dimensions {
		grouping = append(grouping, &armcostmanagement.QueryGrouping{
			Type: to.Ptr(armcostmanagement.QueryColumnTypeDimension),
			Name: to.Ptr(d),
		})
	}
	return armcostmanagement.QueryDefinition{
		Type:      to.Ptr(armcostmanagement.ExportTypeActualCost),
		Timeframe: to.Ptr(armcostmanagement.TimeframeTypeCustom),
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: to.Ptr(q.Start.UTC()),
			To:   to.Ptr(q.End.UTC()),
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: to.Ptr(armcostmanagement.GranularityTypeDaily),
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     to.Ptr("Cost"),
					Function: to.Ptr(armcostmanagement.FunctionTypeSum),
				},
			},
			Grouping: grouping,
		},
	}
}

// costTable locates columns by name. Positions are the fallback when a
// column is missing from the result metadata.
type costTable struct {
	columns  map[string]int
	rows     [][]any
	cost     int
	currency int
}

func newCostTable(result *armcostmanagement.QueryResult) costTable {
	t := costTable{columns: map[string]int{}, cost: -1, currency: -1}
	if result == nil || result.Properties == nil {
		return t
	}
	for i, c := range result.Properties.Columns {
		if c == nil || c.Name == nil {
			continue
		}
		t.columns[strings.ToLower(*c.Name)] = i
	}
	t.rows = result.Properties.Rows
	for _, name := range []string{"cost", "pretaxcost", "costusd"} {
		if i, ok := t.columns[name]; ok {
			t.cost = i
			break
		}
	}
	if i, ok := t.columns["currency"]; ok {
		t.currency = i
	}
	return t
}

func (t costTable) column(name string) int {
	if i, ok := t.columns[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

func (t costTable) value(row []any, index, fallback int) any {
	if index < 0 {
		index = fallback
	}
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}

func (t costTable) text(row []any, index, fallback int) string {
	switch v := t.value(row, index, fallback).(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected cost value %v (%T)", v, v)
	}
}
