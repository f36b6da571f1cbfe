// Package scenario holds the scenario lab shapes: the externally computed
// decision pack it reads and the ranked scenarios it emits.
package scenario

import (
	"gridtruth/domain/claims"
	"gridtruth/domain/core"
	"gridtruth/domain/truth"
	"gridtruth/domain/verdict"
)

// SchemaVersion tags every lab result.
const SchemaVersion = "scenario-lab/v1"

// Category groups templates.
type Category string

const (
	CategoryBattery     Category = "battery"
	CategoryTariff      Category = "tariff"
	CategoryOps         Category = "ops"
	CategoryReliability Category = "reliability"
)

// Status is the outcome of one template.
type Status string

const (
	StatusRan     Status = "RAN"
	StatusBlocked Status = "BLOCKED"
	StatusSkipped Status = "SKIPPED"
)

// CandidateEconomics is the per-candidate summary computed upstream. The lab
// only reads these figures.
type CandidateEconomics struct {
	AnnualSavingsUSD    *float64 `json:"annualSavingsUsd,omitempty"`
	DemandSavingsUSD    *float64 `json:"demandSavingsUsd,omitempty"`
	ArbitrageSavingsUSD *float64 `json:"arbitrageSavingsUsd,omitempty"`
	DemandResponseUSD   *float64 `json:"demandResponseUsd,omitempty"`
	AnnualKWhShifted    *float64 `json:"annualKwhShifted,omitempty"`
	ExportAvoidedKWh    *float64 `json:"exportAvoidedKwh,omitempty"`
	PeakKWReduction     *float64 `json:"peakKwReduction,omitempty"`
	CapexUSD            *float64 `json:"capexUsd,omitempty"`
	PaybackYears        *float64 `json:"paybackYears,omitempty"`
}

// BatteryCandidate is one sized battery option.
type BatteryCandidate struct {
	ID        string             `json:"id"`
	Label     string             `json:"label,omitempty"`
	PowerKW   float64            `json:"powerKw"`
	EnergyKWh float64            `json:"energyKwh"`
	Economics CandidateEconomics `json:"economics"`
}

// TariffAlternative is one alternative rate the upstream economics priced.
type TariffAlternative struct {
	TariffID         string   `json:"tariffId"`
	Label            string   `json:"label,omitempty"`
	AnnualCostUSD    *float64 `json:"annualCostUsd,omitempty"`
	AnnualSavingsUSD *float64 `json:"annualSavingsUsd,omitempty"`
}

// DecisionPack is the previously computed battery decision pack.
type DecisionPack struct {
	ID                  core.PackID         `json:"id"`
	SelectedCandidateID string              `json:"selectedCandidateId,omitempty"`
	Candidates          []BatteryCandidate  `json:"candidates"`
	TariffAlternatives  []TariffAlternative `json:"tariffAlternatives,omitempty"`
	Constraints         []string            `json:"constraints,omitempty"`
	Warnings            []string            `json:"warnings,omitempty"`
}

// Selected returns the selected candidate, if any.
func (p *DecisionPack) Selected() (BatteryCandidate, bool) {
	if p == nil || p.SelectedCandidateID == "" {
		return BatteryCandidate{}, false
	}
	for _, c := range p.Candidates {
		if c.ID == p.SelectedCandidateID {
			return c, true
		}
	}
	return BatteryCandidate{}, false
}

// CoverageSnapshot carries the coverage and trace fields the gates read.
type CoverageSnapshot struct {
	IntervalDays       int                       `json:"intervalDays"`
	TariffMatch        verdict.TariffMatchStatus `json:"tariffMatch"`
	HasRatchetHistory  *bool                     `json:"hasRatchetHistory,omitempty"`
	ProviderType       string                    `json:"providerType,omitempty"`
	DRProgramAvailable *bool                     `json:"drProgramAvailable,omitempty"`
	ExportLimitKW      *float64                  `json:"exportLimitKw,omitempty"`
}

// KPIs are the scenario figures. Unknown values stay nil.
type KPIs struct {
	AnnualUSD       *float64 `json:"annualUsd"`
	AnnualKWh       *float64 `json:"annualKwh"`
	PeakKWReduction *float64 `json:"peakKwReduction"`
	CapexUSD        *float64 `json:"capexUsd"`
	PaybackYears    *float64 `json:"paybackYears"`
}

// Gating records why a scenario was limited and what would unblock it.
type Gating struct {
	BlockedReasons   []string `json:"blockedReasons"`
	RequiredNextData []string `json:"requiredNextData"`
}

// Provenance traces a scenario back to its inputs.
type Provenance struct {
	TemplateID  string      `json:"templateId"`
	PackID      core.PackID `json:"packId,omitempty"`
	CandidateID string      `json:"candidateId,omitempty"`
	SourcePaths []string    `json:"sourcePaths"`
}

// Result is one evaluated template.
type Result struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Category   Category   `json:"category"`
	Status     Status     `json:"status"`
	Confidence truth.Tier `json:"confidence"`
	KPIs       KPIs       `json:"kpis"`
	Gating     Gating     `json:"gating"`
	Pros       []string   `json:"pros"`
	Cons       []string   `json:"cons"`
	Provenance Provenance `json:"provenance"`
}

// SavingsUnit is the unit of a frontier point's savings axis.
type SavingsUnit string

const (
	SavingsUSD SavingsUnit = "usd"
	SavingsKWh SavingsUnit = "kwh"
)

// FrontierPoint is one non-dominated scenario.
type FrontierPoint struct {
	ScenarioID   string      `json:"scenarioId"`
	Title        string      `json:"title"`
	Confidence   truth.Tier  `json:"confidence"`
	Savings      float64     `json:"savings"`
	SavingsUnit  SavingsUnit `json:"savingsUnit"`
	CapexUSD     *float64    `json:"capexUsd"`
	PaybackYears *float64    `json:"paybackYears"`
	Note         string      `json:"note,omitempty"`
}

// FrontierAxes labels the frontier axes.
type FrontierAxes struct {
	Savings    string `json:"savings"`
	Capex      string `json:"capex"`
	Confidence string `json:"confidence"`
	Payback    string `json:"payback"`
}

// Frontier is the Pareto set of ran scenarios.
type Frontier struct {
	Axes   FrontierAxes    `json:"axes"`
	Points []FrontierPoint `json:"points"`
}

// BlockedScenario summarizes one blocked template.
type BlockedScenario struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Category         Category `json:"category"`
	BlockedReasons   []string `json:"blockedReasons"`
	RequiredNextData []string `json:"requiredNextData"`
}

// InputSummary echoes what the lab was run against.
type InputSummary struct {
	PackID              core.PackID               `json:"packId,omitempty"`
	SelectedCandidateID string                    `json:"selectedCandidateId,omitempty"`
	CandidateCount      int                       `json:"candidateCount"`
	IntervalDays        int                       `json:"intervalDays"`
	TariffMatch         verdict.TariffMatchStatus `json:"tariffMatch"`
	ConfidenceTier      truth.Tier                `json:"confidenceTier"`
	VerifierStatus      verdict.CheckStatus       `json:"verifierStatus"`
	ClaimsStatus        claims.Status             `json:"claimsStatus"`
}

// LabResult is the versioned scenario lab output.
type LabResult struct {
	SchemaVersion string            `json:"schemaVersion"`
	ID            core.ID           `json:"id"`
	RunID         core.RunID        `json:"runId"`
	RevisionID    core.RevisionID   `json:"revisionId"`
	GeneratedAt   core.Timestamp    `json:"generatedAt"`
	Inputs        InputSummary      `json:"inputs"`
	Scenarios     []Result          `json:"scenarios"`
	Frontier      Frontier          `json:"frontier"`
	Blocked       []BlockedScenario `json:"blocked"`
	Warnings      []string          `json:"warnings"`
}
