package scenario

import (
	"fmt"
	"sort"

	domainScenario "gridtruth/domain/scenario"
	"gridtruth/internal/bounded"
)

var staticPros = map[domainScenario.Category][]string{
	domainScenario.CategoryBattery: {
		"Cuts peak demand without changing operations",
		"Adds dispatchable on-site storage",
	},
	domainScenario.CategoryTariff: {
		"Requires no capital spend",
		"Can be reversed at the next billing cycle",
	},
	domainScenario.CategoryReliability: {
		"Improves resilience to grid events",
		"Creates value from idle battery capacity",
	},
	domainScenario.CategoryOps: {
		"Low or no capital required",
		"Uses equipment already on site",
	},
}

var staticCons = map[domainScenario.Category][]string{
	domainScenario.CategoryBattery: {
		"Requires upfront capital",
		"Savings depend on dispatch strategy",
	},
	domainScenario.CategoryTariff: {
		"Savings depend on future rate changes",
	},
	domainScenario.CategoryReliability: {
		"Reserved capacity limits other value streams",
	},
	domainScenario.CategoryOps: {
		"Requires sustained operational changes",
	},
}

// ProsCons derives bounded pros and cons for a scenario. Conditional bullets
// come first so they survive the cap.
func ProsCons(r domainScenario.Result, suppressed bool, max int) (pros, cons []string) {
	k := r.KPIs
	if r.Status == domainScenario.StatusRan {
		if k.AnnualUSD != nil && *k.AnnualUSD > 0 {
			pros = append(pros, fmt.Sprintf("Saves about $%.0f per year", *k.AnnualUSD))
		}
		if k.PaybackYears != nil {
			pros = append(pros, fmt.Sprintf("Pays back in %.1f years", *k.PaybackYears))
		}
		if k.AnnualKWh != nil && *k.AnnualKWh > 0 {
			pros = append(pros, fmt.Sprintf("Moves or avoids about %.0f kWh per year", *k.AnnualKWh))
		}
	}
	pros = append(pros, staticPros[r.Category]...)

	switch r.Status {
	case domainScenario.StatusBlocked:
		cons = append(cons, "Blocked until missing inputs are supplied")
	case domainScenario.StatusSkipped:
		cons = append(cons, "Not applicable to this site")
	}
	if suppressed {
		cons = append(cons, "Savings figure withheld by claims policy")
	}
	if r.Status == domainScenario.StatusRan && k.CapexUSD == nil && r.Category == domainScenario.CategoryBattery {
		cons = append(cons, "Capital cost not available")
	}
	cons = append(cons, staticCons[r.Category]...)

	return bounded.Ordered(pros, max), bounded.Ordered(cons, max)
}

// BlockedSummary lists blocked scenarios by category then id, bounded.
func BlockedSummary(results []domainScenario.Result, max int) []domainScenario.BlockedScenario {
	out := []domainScenario.BlockedScenario{}
	for _, r := range results {
		if r.Status != domainScenario.StatusBlocked {
			continue
		}
		out = append(out, domainScenario.BlockedScenario{
			ID:               r.ID,
			Title:            r.Title,
			Category:         r.Category,
			BlockedReasons:   append([]string{}, r.Gating.BlockedReasons...),
			RequiredNextData: append([]string{}, r.Gating.RequiredNextData...),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}
