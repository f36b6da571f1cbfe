package verifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gridtruth/domain/verdict"
	"gridtruth/internal/numeric"
)

// DedupMarker is the audit marker that shows CCA adders and exit fees were
// not double counted on the supply line.
const DedupMarker = "cca_adders_exit_fee_deduped"

// supplyKinds are the line-item kinds the dedup marker must sit on.
var supplyKinds = map[string]bool{"supply": true, "generation": true}

// hardInvalidIntakeCodes are intake warnings that make an interval series
// unusable regardless of its other figures.
var hardInvalidIntakeCodes = map[string]bool{
	"INTERVAL_EMPTY":                  true,
	"INTERVAL_TIMESTAMPS_UNPARSEABLE": true,
	"INTERVAL_NON_MONOTONIC":          true,
	"INTERVAL_UNITS_UNKNOWN":          true,
	"INTERVAL_GRANULARITY_MIXED":      true,
}

// financialTotalPaths are where a generated pack publishes headline money.
var financialTotalPaths = []string{
	"financials.annualSavingsUsd",
	"financials.totalAnnualSavingsUsd",
	"financials.npvUsd",
	"summary.annualSavingsUsd",
	"battery.selected.annualSavingsUsd",
}

// EconomicsReconciliation fails when the audited total drifts from the sum of
// its line items by more than the tolerance.
func EconomicsReconciliation(in Input) []verdict.CheckResult {
	audit := in.Analysis.Audit
	if audit == nil {
		return nil
	}
	sum := 0.0
	if audit.LineItemSumUSD != nil {
		sum = *audit.LineItemSumUSD
	} else {
		for _, li := range audit.LineItems {
			sum += li.AmountUSD
		}
	}
	tol := in.Options.ReconciliationToleranceUSD
	delta := numeric.Round(math.Abs(audit.TotalUSD-sum), numeric.USDPlaces)
	r := result(verdict.CodeEconomicsReconciliation, verdict.StatusPass,
		"audit total reconciles with line items")
	if delta > tol {
		r = result(verdict.CodeEconomicsReconciliation, verdict.StatusFail,
			"audit total %.2f differs from line-item sum %.2f by %.2f", audit.TotalUSD, sum, delta)
		r.Paths = []string{"audit.totalUsd", "audit.lineItems"}
	}
	r.Tolerance = numeric.Ptr(tol)
	r.Details = map[string]any{
		"totalUsd":       numeric.Round(audit.TotalUSD, numeric.USDPlaces),
		"lineItemSumUsd": numeric.Round(sum, numeric.USDPlaces),
		"deltaUsd":       delta,
	}
	return []verdict.CheckResult{r}
}

// IntervalSanity validates the stored interval summary.
func IntervalSanity(in Input) []verdict.CheckResult {
	iv := in.Analysis.Interval
	if iv == nil {
		return nil
	}
	var problems, paths []string
	fail := func(path, format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
		paths = append(paths, path)
	}

	if iv.PointCount < 0 {
		fail("interval.pointCount", "point count %d is negative", iv.PointCount)
	}
	start, startErr := parseDate(iv.StartDate)
	end, endErr := parseDate(iv.EndDate)
	switch {
	case startErr != nil:
		fail("interval.startDate", "start date %q is not parseable", iv.StartDate)
	case endErr != nil:
		fail("interval.endDate", "end date %q is not parseable", iv.EndDate)
	case end.Before(start):
		fail("interval.endDate", "date range %s..%s is reversed", iv.StartDate, iv.EndDate)
	}

	granularity := float64(iv.GranularityMinutes)
	if granularity <= 0 && startErr == nil && endErr == nil && iv.PointCount > 0 {
		granularity = end.AddDate(0, 0, 1).Sub(start).Minutes() / float64(iv.PointCount)
	}
	if granularity <= 0 {
		fail("interval.granularityMinutes", "granularity cannot be inferred")
	}
	if iv.CoverageDays < 0 {
		fail("interval.coverageDays", "coverage days %.2f is negative", iv.CoverageDays)
	}

	var hard []string
	for _, code := range iv.IntakeWarnings {
		if norm := strings.ToUpper(strings.TrimSpace(code)); hardInvalidIntakeCodes[norm] {
			hard = append(hard, norm)
		}
	}
	if len(hard) > 0 {
		sort.Strings(hard)
		fail("interval.intakeWarnings", "hard-invalid intake warnings: %s", strings.Join(hard, ", "))
	}

	var tolerance *float64
	details := map[string]any{}
	if granularity > 0 && iv.PointCount >= 0 && iv.CoverageDays >= 0 {
		implied := float64(iv.PointCount) * granularity / (24 * 60)
		tol := math.Max(in.Options.CoverageToleranceDays,
			in.Options.CoverageToleranceRatio*math.Max(implied, iv.CoverageDays))
		tolerance = numeric.Ptr(numeric.Round(tol, numeric.RatioPlaces))
		details["impliedCoverageDays"] = numeric.Round(implied, numeric.RatioPlaces)
		details["declaredCoverageDays"] = numeric.Round(iv.CoverageDays, numeric.RatioPlaces)
		if math.Abs(implied-iv.CoverageDays) > tol {
			fail("interval.coverageDays", "declared coverage %.1f days is inconsistent with %.1f implied days",
				iv.CoverageDays, implied)
		}
	}

	r := result(verdict.CodeIntervalSanity, verdict.StatusPass, "interval summary is consistent")
	if len(problems) > 0 {
		r = result(verdict.CodeIntervalSanity, verdict.StatusFail, "%s", strings.Join(problems, "; "))
	}
	r.Tolerance = tolerance
	r.Paths = paths
	r.Details = details
	return []verdict.CheckResult{r}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// RateContextDedup applies only to CCA supply with both an adders snapshot and
// an exit-fee snapshot: the supply line item must carry DedupMarker.
func RateContextDedup(in Input) []verdict.CheckResult {
	rc := in.Analysis.RateContext
	if rc == nil || !rc.IsCCA() || isBlank(rc.AddersSnapshotID) || isBlank(rc.ExitFeeSnapshotID) {
		return nil
	}
	if audit := in.Analysis.Audit; audit != nil {
		for i, li := range audit.LineItems {
			if supplyKinds[strings.ToLower(li.Kind)] && li.HasMarker(DedupMarker) {
				r := result(verdict.CodeRateContextDedup, verdict.StatusPass,
					"CCA adders and exit fee are deduplicated on %s", li.ID)
				r.Paths = []string{fmt.Sprintf("audit.lineItems.%d.markers", i)}
				return []verdict.CheckResult{r}
			}
		}
	}
	r := result(verdict.CodeRateContextDedup, verdict.StatusFail,
		"CCA adders and exit fee snapshots present but no supply line item carries %s", DedupMarker)
	r.Paths = []string{"audit.lineItems", "rateContext.addersSnapshotId", "rateContext.exitFeeSnapshotId"}
	return []verdict.CheckResult{r}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// TariffMatchSanity warns when tariff-dependent economics rest on an unresolved
// tariff match, and fails when the pack still publishes financial totals.
func TariffMatchSanity(in Input) []verdict.CheckResult {
	a := in.Analysis
	if !a.TariffMatch.Unresolved() || !a.HasTariffDependentEconomics {
		return nil
	}
	published := publishedFinancialTotals(in.Pack)
	if len(published) > 0 {
		r := result(verdict.CodeTariffMatchSanity, verdict.StatusFail,
			"pack publishes financial totals although tariff match is %s", a.TariffMatch)
		r.Paths = published
		return []verdict.CheckResult{r}
	}
	r := result(verdict.CodeTariffMatchSanity, verdict.StatusWarn,
		"tariff-dependent economics rest on an unresolved tariff match (%s)", a.TariffMatch)
	r.Paths = []string{"tariffMatch.status"}
	return []verdict.CheckResult{r}
}

func publishedFinancialTotals(pack []byte) []string {
	if len(pack) == 0 {
		return nil
	}
	var found []string
	for _, path := range financialTotalPaths {
		if v := gjson.GetBytes(pack, path); v.Type == gjson.Number {
			found = append(found, path)
		}
	}
	return found
}
