package scenario

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	domainScenario "gridtruth/domain/scenario"
	"gridtruth/internal/numeric"
)

func TestProsCons(t *testing.T) {
	r := domainScenario.Result{
		Category: domainScenario.CategoryBattery,
		Status:   domainScenario.StatusRan,
		KPIs: domainScenario.KPIs{
			AnnualUSD:    numeric.Ptr(1234.4),
			PaybackYears: numeric.Ptr(4.26),
			AnnualKWh:    numeric.Ptr(800),
		},
	}
	pros, cons := ProsCons(r, false, 5)
	assert.Equal(t, []string{
		"Saves about $1234 per year",
		"Pays back in 4.3 years",
		"Moves or avoids about 800 kWh per year",
		"Cuts peak demand without changing operations",
		"Adds dispatchable on-site storage",
	}, pros)
	assert.Equal(t, []string{
		"Capital cost not available",
		"Requires upfront capital",
		"Savings depend on dispatch strategy",
	}, cons)

	pros, cons = ProsCons(r, true, 2)
	assert.Len(t, pros, 2)
	assert.Equal(t, []string{"Savings figure withheld by claims policy", "Capital cost not available"}, cons)
}

func TestProsConsBlocked(t *testing.T) {
	r := domainScenario.Result{
		Category: domainScenario.CategoryTariff,
		Status:   domainScenario.StatusBlocked,
		KPIs:     domainScenario.KPIs{AnnualUSD: numeric.Ptr(10)},
	}
	pros, cons := ProsCons(r, false, 5)
	assert.Equal(t, staticPros[domainScenario.CategoryTariff], pros)
	assert.Equal(t, "Blocked until missing inputs are supplied", cons[0])
}

func TestBlockedSummary(t *testing.T) {
	var results []domainScenario.Result
	cats := []domainScenario.Category{
		domainScenario.CategoryTariff, domainScenario.CategoryBattery,
		domainScenario.CategoryOps, domainScenario.CategoryReliability,
	}
	for i := 0; i < 40; i++ {
		status := domainScenario.StatusBlocked
		if i%4 == 0 {
			status = domainScenario.StatusSkipped
		}
		results = append(results, domainScenario.Result{
			ID:       fmt.Sprintf("t%02d", 39-i),
			Category: cats[i%len(cats)],
			Status:   status,
			Gating:   domainScenario.Gating{BlockedReasons: []string{"X"}},
		})
	}
	got := BlockedSummary(results, DefaultMaxBlocked)
	assert.Len(t, got, DefaultMaxBlocked)
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		assert.True(t, a.Category < b.Category || (a.Category == b.Category && a.ID < b.ID))
	}
	for _, b := range got {
		assert.NotEqual(t, domainScenario.CategoryTariff, b.Category)
		assert.NotNil(t, b.RequiredNextData)
	}
}
