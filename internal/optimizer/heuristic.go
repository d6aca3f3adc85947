// internal/optimizer/heuristic.go
package optimizer

import (
	"context"
	"fmt"
	"sort"

	"cloudwise/internal/models"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// dominantShare and resourceShare are percentages of a report's total.
	dominantShare = decimal.NewFromInt(50)
	resourceShare = decimal.NewFromInt(10)
)

// Heuristic derives advice from the numbers alone, without a model call.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return StrategyHeuristic }

func (h *Heuristic) Optimize(ctx context.Context, resourceDetails map[string]any, costData map[string]*models.CostReport) (models.Sections, error) {
	out := Empty()
	add := func(section, format string, args ...any) {
		out[section] = append(out[section], fmt.Sprintf(format, args...))
	}

	for _, platform := range sortedKeys(costData) {
		report := costData[platform]
		if report == nil || !report.TotalCost.IsPositive() {
			continue
		}
		total := report.TotalCost
		currency := report.Currency

		for _, category := range sortedKeys(report.CostsByCategory) {
			amount := report.CostsByCategory[category]
			share := percent(amount, total)
			if share.GreaterThan(dominantShare) {
				add(SectionOpportunities, "%s: %s accounts for %s%% of spend (%s %s)",
					platform, category, share.StringFixed(1), currency, amount.StringFixed(2))
				add(SectionRecommendations, "%s: review %s for rightsizing, idle capacity and commitment discounts",
					platform, category)
				add(SectionImplementationSteps, "%s: break %s spend down by usage type and owner to find the largest consumers",
					platform, category)
			}
		}

		if primary, others, spread := locationSpread(report.CostsByLocation); len(spread) > 1 {
			add(SectionRecommendations, "%s: spend is spread across %d locations; consolidate workloads into %s where latency and residency allow",
				platform, len(spread), primary)
			add(SectionSavingsEstimates, "%s: %s %s (%s%% of spend) runs outside %s and bounds the savings from consolidation",
				platform, currency, others.StringFixed(2), percent(others, total).StringFixed(1), primary)
			add(SectionImplementationSteps, "%s: inventory the resources in %v and plan their migration to %s",
				platform, spread[1:], primary)
		}

		for _, resource := range sortedKeys(report.CostsByResource) {
			amount := report.CostsByResource[resource]
			share := percent(amount, total)
			if share.GreaterThan(resourceShare) {
				add(SectionRecommendations, "%s: review %s, which costs %s %s (%s%% of spend)",
					platform, resource, currency, amount.StringFixed(2), share.StringFixed(1))
				add(SectionImplementationSteps, "%s: check the utilization of %s before resizing or shutting it down",
					platform, resource)
			}
		}
	}

	for _, key := range sortedKeys(resourceDetails) {
		listing, ok := resourceDetails[key].(*models.InstanceListing)
		if !ok || listing == nil {
			continue
		}
		stopped := 0
		for _, instances := range listing.Regions {
			for _, inst := range instances {
				if inst.State == "stopped" || inst.State == "deallocated" {
					stopped++
				}
			}
		}
		if stopped > 0 {
			add(SectionOpportunities, "%s: %d stopped instances still incur disk and address charges", key, stopped)
			add(SectionImplementationSteps, "%s: snapshot and remove stopped instances that are no longer needed", key)
		}
	}

	return out, nil
}

// locationSpread returns the location with the most spend, the spend
// everywhere else, and all locations with spend ordered by amount.
func locationSpread(byLocation map[string]decimal.Decimal) (string, decimal.Decimal, []string) {
	var locations []string
	for loc, amount := range byLocation {
		if amount.IsPositive() {
			locations = append(locations, loc)
		}
	}
	if len(locations) == 0 {
		return "", decimal.Zero, nil
	}
	sort.Slice(locations, func(i, j int) bool {
		a, b := byLocation[locations[i]], byLocation[locations[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return locations[i] < locations[j]
	})

	others := decimal.Zero
	for _, loc := range locations[1:] {
		others = others.Add(byLocation[loc])
	}
	return locations[0], others, locations
}

func percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
