package scenario

import (
	"sort"

	domainScenario "gridtruth/domain/scenario"
)

// FrontierAxes are the labels of the four frontier axes.
var FrontierAxes = domainScenario.FrontierAxes{
	Savings:    "maximize annualUsd (annualKwh when USD is unavailable)",
	Capex:      "minimize capexUsd",
	Confidence: "maximize confidence tier",
	Payback:    "minimize paybackYears",
}

const kwhFallbackNote = "savings axis uses annual kWh because annual USD is unavailable"

// BuildFrontier Pareto-filters the ran scenarios that have a savings figure.
// Points whose savings are in different units never dominate each other, and
// a value known on one side only never lets either point win that axis.
func BuildFrontier(results []domainScenario.Result, max int) domainScenario.Frontier {
	var candidates []domainScenario.FrontierPoint
	for _, r := range results {
		if r.Status != domainScenario.StatusRan {
			continue
		}
		p := domainScenario.FrontierPoint{
			ScenarioID:   r.ID,
			Title:        r.Title,
			Confidence:   r.Confidence,
			CapexUSD:     r.KPIs.CapexUSD,
			PaybackYears: r.KPIs.PaybackYears,
		}
		switch {
		case r.KPIs.AnnualUSD != nil:
			p.Savings, p.SavingsUnit = *r.KPIs.AnnualUSD, domainScenario.SavingsUSD
		case r.KPIs.AnnualKWh != nil:
			p.Savings, p.SavingsUnit = *r.KPIs.AnnualKWh, domainScenario.SavingsKWh
			p.Note = kwhFallbackNote
		default:
			continue
		}
		candidates = append(candidates, p)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ScenarioID < candidates[j].ScenarioID })

	var front []domainScenario.FrontierPoint
	for _, c := range candidates {
		dominated := false
		for _, f := range front {
			if Dominates(f, c) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		kept := front[:0]
		for _, f := range front {
			if !Dominates(c, f) {
				kept = append(kept, f)
			}
		}
		front = append(kept, c)
	}

	sort.SliceStable(front, func(i, j int) bool {
		a, b := front[i], front[j]
		if a.SavingsUnit != b.SavingsUnit {
			return a.SavingsUnit == domainScenario.SavingsUSD
		}
		if a.Savings != b.Savings {
			return a.Savings > b.Savings
		}
		if c := compareOptional(a.CapexUSD, b.CapexUSD); c != 0 {
			return c < 0
		}
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		return a.ScenarioID < b.ScenarioID
	})
	if len(front) > max {
		front = front[:max]
	}
	if front == nil {
		front = []domainScenario.FrontierPoint{}
	}
	return domainScenario.Frontier{Axes: FrontierAxes, Points: front}
}

// Dominates reports whether a is at least as good as b on every axis and
// strictly better on one.
func Dominates(a, b domainScenario.FrontierPoint) bool {
	if a.SavingsUnit != b.SavingsUnit {
		return false
	}
	axes := []int{
		cmpHigher(a.Savings, b.Savings),
		cmpOptionalLower(a.CapexUSD, b.CapexUSD),
		cmpHigher(float64(a.Confidence.Rank()), float64(b.Confidence.Rank())),
		cmpOptionalLower(a.PaybackYears, b.PaybackYears),
	}
	better := false
	for _, c := range axes {
		switch {
		case c < 0:
			return false
		case c > 0:
			better = true
		}
	}
	return better
}

// unknownAxis marks an axis where only one side has a value.
const unknownAxis = -2

// cmpHigher is 1 when a beats b on a maximized axis, -1 when it loses, 0 on a tie.
func cmpHigher(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// cmpOptionalLower compares a minimized axis. Both unknown ties; one unknown
// blocks dominance in both directions.
func cmpOptionalLower(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil || b == nil:
		return unknownAxis
	}
	return cmpHigher(*b, *a)
}

// compareOptional orders known values ascending with unknown last.
func compareOptional(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
