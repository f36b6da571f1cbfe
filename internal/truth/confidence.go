package truth

import (
	"fmt"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/bounded"
)

// Warning tags emitted by the confidence calculator.
const (
	WarnNoIntervalData   = "no_interval_data"
	WarnShortCoverage    = "short_interval_coverage"
	WarnLowFitQuality    = "low_fit_quality"
	WarnBillTextNoValues = "bill_text_without_interval"
)

// ConfidenceInput is what the tier calculator folds together.
type ConfidenceInput struct {
	Coverage domainTruth.Coverage
	Baseline domainTruth.BaselineModel
}

// ComputeConfidenceTier grades the snapshot. A needs TierADays of interval
// data and a tier-A baseline; B needs TierBDays and a baseline of A or B.
// Without interval data the tier is always C.
func ComputeConfidenceTier(in ConfidenceInput, opts Options) (domainTruth.ConfidenceTier, []string) {
	var reasons, warnings []string
	cov := in.Coverage
	fit := in.Baseline.Fit

	reasons = append(reasons, "baseline_kind:"+string(in.Baseline.Kind))

	if !cov.HasInterval() {
		reasons = append(reasons, WarnNoIntervalData)
		warnings = append(warnings, WarnNoIntervalData)
		if cov.HasBillText {
			reasons = append(reasons, "bill_text_available")
			warnings = append(warnings, WarnBillTextNoValues)
		}
		if cov.BillMonths > 0 {
			reasons = append(reasons, fmt.Sprintf("bill_months:%d", cov.BillMonths))
		}
		return domainTruth.ConfidenceTier{
			Tier:    domainTruth.TierC,
			Reasons: bounded.Strings(reasons, opts.MaxWarnings),
		}, bounded.Strings(warnings, opts.MaxWarnings)
	}

	days := cov.IntervalDays
	switch {
	case days >= opts.TierADays:
		reasons = append(reasons, fmt.Sprintf("interval_days_gte_%d", opts.TierADays))
	case days >= opts.TierBDays:
		reasons = append(reasons, fmt.Sprintf("interval_days_gte_%d", opts.TierBDays))
	default:
		reasons = append(reasons, fmt.Sprintf("interval_days_lt_%d", opts.TierBDays))
		warnings = append(warnings, WarnShortCoverage)
	}
	reasons = append(reasons, "baseline_tier:"+string(fit.Tier))
	if fit.R2 == nil {
		reasons = append(reasons, "r2_unavailable")
	} else if *fit.R2 < opts.TierBR2 {
		reasons = append(reasons, fmt.Sprintf("r2_below_%.2f", opts.TierBR2))
		warnings = append(warnings, WarnLowFitQuality)
	}

	tier := domainTruth.TierC
	switch {
	case days >= opts.TierADays && fit.Tier == domainTruth.TierA:
		tier = domainTruth.TierA
	case days >= opts.TierBDays && (fit.Tier == domainTruth.TierA || fit.Tier == domainTruth.TierB):
		tier = domainTruth.TierB
	}
	return domainTruth.ConfidenceTier{
		Tier:    tier,
		Reasons: bounded.Strings(reasons, opts.MaxWarnings),
	}, bounded.Strings(warnings, opts.MaxWarnings)
}
