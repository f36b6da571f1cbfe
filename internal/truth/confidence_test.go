package truth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

func TestComputeConfidenceTier(t *testing.T) {
	fit := func(tier domainTruth.Tier, r2 *float64) domainTruth.BaselineModel {
		return domainTruth.BaselineModel{
			Kind: domainTruth.ModelWeatherRegression,
			Fit:  domainTruth.FitQuality{Tier: tier, R2: r2},
		}
	}
	tests := []struct {
		name         string
		coverage     domainTruth.Coverage
		baseline     domainTruth.BaselineModel
		want         domainTruth.Tier
		wantReasons  []string
		wantWarnings []string
	}{
		{
			name:         "long coverage good fit",
			coverage:     domainTruth.Coverage{HourlyBins: 840, IntervalDays: 35},
			baseline:     fit(domainTruth.TierA, numeric.Ptr(0.9)),
			want:         domainTruth.TierA,
			wantReasons:  []string{"baseline_tier:A", "interval_days_gte_28"},
			wantWarnings: []string{},
		},
		{
			name:         "long coverage middling fit",
			coverage:     domainTruth.Coverage{HourlyBins: 840, IntervalDays: 35},
			baseline:     fit(domainTruth.TierB, numeric.Ptr(0.4)),
			want:         domainTruth.TierB,
			wantReasons:  []string{"baseline_tier:B"},
			wantWarnings: []string{},
		},
		{
			name:         "two weeks",
			coverage:     domainTruth.Coverage{HourlyBins: 400, IntervalDays: 17},
			baseline:     fit(domainTruth.TierA, numeric.Ptr(0.9)),
			want:         domainTruth.TierB,
			wantReasons:  []string{"interval_days_gte_14"},
			wantWarnings: []string{},
		},
		{
			name:         "short coverage",
			coverage:     domainTruth.Coverage{HourlyBins: 100, IntervalDays: 5},
			baseline:     fit(domainTruth.TierA, numeric.Ptr(0.9)),
			want:         domainTruth.TierC,
			wantReasons:  []string{"interval_days_lt_14"},
			wantWarnings: []string{WarnShortCoverage},
		},
		{
			name:         "poor fit",
			coverage:     domainTruth.Coverage{HourlyBins: 840, IntervalDays: 35},
			baseline:     fit(domainTruth.TierC, numeric.Ptr(0.1)),
			want:         domainTruth.TierC,
			wantReasons:  []string{"r2_below_0.35"},
			wantWarnings: []string{WarnLowFitQuality},
		},
		{
			name:        "no r2",
			coverage:    domainTruth.Coverage{HourlyBins: 840, IntervalDays: 35},
			baseline:    fit(domainTruth.TierA, nil),
			want:        domainTruth.TierA,
			wantReasons: []string{"r2_unavailable"},
		},
		{
			name:         "bills with text only",
			coverage:     domainTruth.Coverage{BillMonths: 12, HasBillText: true},
			baseline:     domainTruth.BaselineModel{Kind: domainTruth.ModelBillsMonthly, Fit: domainTruth.FitQuality{Tier: domainTruth.TierC}},
			want:         domainTruth.TierC,
			wantReasons:  []string{"baseline_kind:bills_monthly", "bill_months:12", "bill_text_available", WarnNoIntervalData},
			wantWarnings: []string{WarnBillTextNoValues, WarnNoIntervalData},
		},
		{
			name:         "nothing",
			baseline:     domainTruth.BaselineModel{Kind: domainTruth.ModelNone, Fit: domainTruth.FitQuality{Tier: domainTruth.TierC}},
			want:         domainTruth.TierC,
			wantWarnings: []string{WarnNoIntervalData},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := ComputeConfidenceTier(ConfidenceInput{Coverage: tt.coverage, Baseline: tt.baseline}, DefaultOptions())
			assert.Equal(t, tt.want, got.Tier)
			for _, r := range tt.wantReasons {
				assert.Contains(t, got.Reasons, r)
			}
			assert.IsIncreasing(t, got.Reasons)
			if tt.wantWarnings != nil {
				assert.Equal(t, tt.wantWarnings, warnings)
			}
		})
	}
}

func TestConfidenceNeverExceedsBaselineTier(t *testing.T) {
	cov := domainTruth.Coverage{HourlyBins: 2000, IntervalDays: 90}
	for _, tier := range []domainTruth.Tier{domainTruth.TierA, domainTruth.TierB, domainTruth.TierC} {
		got, _ := ComputeConfidenceTier(ConfidenceInput{
			Coverage: cov,
			Baseline: domainTruth.BaselineModel{Kind: domainTruth.ModelSeasonalProfile, Fit: domainTruth.FitQuality{Tier: tier}},
		}, DefaultOptions())
		assert.LessOrEqual(t, got.Tier.Rank(), tier.Rank())
	}
}
