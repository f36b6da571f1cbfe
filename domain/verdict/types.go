// Package verdict holds the verifier's result shapes and the stored artifact
// shapes the checks read.
package verdict

import (
	"strings"
)

// CheckStatus is the outcome of one cross-check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// Severity orders statuses Fail < Warn < Pass.
func (s CheckStatus) Severity() int {
	switch s {
	case StatusFail:
		return 0
	case StatusWarn:
		return 1
	default:
		return 2
	}
}

// ParseCheckStatus maps a loose status string onto a known status.
func ParseCheckStatus(s string) (CheckStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PASS", "PASSED", "OK":
		return StatusPass, true
	case "WARN", "WARNING":
		return StatusWarn, true
	case "FAIL", "FAILED", "ERROR":
		return StatusFail, true
	}
	return "", false
}

// CheckCode names a check.
type CheckCode string

const (
	CodeEconomicsReconciliation CheckCode = "ECONOMICS_RECONCILIATION"
	CodeIntervalSanity          CheckCode = "INTERVAL_SANITY"
	CodeRateContextDedup        CheckCode = "RATE_CONTEXT_DEDUP"
	CodeTariffMatchSanity       CheckCode = "TARIFF_MATCH_SANITY"
	CodeProvenanceHeader        CheckCode = "PROVENANCE_HEADER"
	CodeUnnamed                 CheckCode = "UNNAMED_CHECK"
)

// CheckResult is one normalized check outcome.
type CheckResult struct {
	Code      CheckCode      `json:"code"`
	Status    CheckStatus    `json:"status"`
	Message   string         `json:"message"`
	Tolerance *float64       `json:"tolerance,omitempty"`
	Paths     []string       `json:"paths,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Counts tallies results by status.
type Counts struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Result is the sorted battery outcome.
type Result struct {
	Checks  []CheckResult `json:"checks"`
	Counts  Counts        `json:"counts"`
	Overall CheckStatus   `json:"overall"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Overall == StatusFail
}

// LineItem is one audited economics line.
type LineItem struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Label     string   `json:"label,omitempty"`
	AmountUSD float64  `json:"amountUsd"`
	Markers   []string `json:"markers,omitempty"`
}

// HasMarker reports whether the line item carries marker.
func (li LineItem) HasMarker(marker string) bool {
	for _, m := range li.Markers {
		if m == marker {
			return true
		}
	}
	return false
}

// EconomicsAudit is the stored audit block of a previously computed analysis.
// LineItemSumUSD is the sum the producer reported; when absent the checks sum
// the line items themselves.
type EconomicsAudit struct {
	TotalUSD       float64    `json:"totalUsd"`
	LineItemSumUSD *float64   `json:"lineItemSumUsd,omitempty"`
	LineItems      []LineItem `json:"lineItems"`
}

// IntervalSummary is the stored description of the interval intake.
type IntervalSummary struct {
	PointCount         int      `json:"pointCount"`
	GranularityMinutes int      `json:"granularityMinutes"`
	StartDate          string   `json:"startDate"`
	EndDate            string   `json:"endDate"`
	CoverageDays       float64  `json:"coverageDays"`
	IntakeWarnings     []string `json:"intakeWarnings,omitempty"`
}

// ProviderCCA is the community choice aggregation supply provider type.
const ProviderCCA = "CCA"

// RateContext describes the supply side of the rate used in the analysis.
type RateContext struct {
	ProviderType      string  `json:"providerType"`
	AddersSnapshotID  *string `json:"addersSnapshotId,omitempty"`
	ExitFeeSnapshotID *string `json:"exitFeeSnapshotId,omitempty"`
}

// IsCCA reports whether the provider is a CCA.
func (rc RateContext) IsCCA() bool {
	return strings.EqualFold(strings.TrimSpace(rc.ProviderType), ProviderCCA)
}

// TariffMatchStatus is whether the billing schedule was identified against a
// rate library.
type TariffMatchStatus string

const (
	TariffMatched     TariffMatchStatus = "matched"
	TariffAmbiguous   TariffMatchStatus = "ambiguous"
	TariffNotFound    TariffMatchStatus = "not_found"
	TariffUnsupported TariffMatchStatus = "unsupported"
	TariffUnknown     TariffMatchStatus = "unknown"
)

// ParseTariffMatchStatus normalizes a loose status. Anything unrecognized is
// unknown.
func ParseTariffMatchStatus(s string) TariffMatchStatus {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch TariffMatchStatus(norm) {
	case TariffMatched, "found", "resolved":
		return TariffMatched
	case TariffAmbiguous:
		return TariffAmbiguous
	case TariffNotFound, "notfound":
		return TariffNotFound
	case TariffUnsupported:
		return TariffUnsupported
	}
	return TariffUnknown
}

// Unresolved reports whether the match leaves the tariff undetermined.
func (s TariffMatchStatus) Unresolved() bool {
	return s != TariffMatched
}

// Analysis is the typed view of a stored analysis artifact.
type Analysis struct {
	Audit                       *EconomicsAudit   `json:"audit,omitempty"`
	Interval                    *IntervalSummary  `json:"interval,omitempty"`
	RateContext                 *RateContext      `json:"rateContext,omitempty"`
	TariffMatch                 TariffMatchStatus `json:"tariffMatch"`
	HasTariffDependentEconomics bool              `json:"tariffDependentEconomics"`
}
