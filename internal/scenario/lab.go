// Package scenario evaluates a fixed, ordered registry of decision scenarios
// against a previously computed battery decision pack, gates them through the
// claims policy and coverage, and ranks the ran ones on a Pareto frontier.
package scenario

import (
	"fmt"
	"math"
	"strings"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/core"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
	"gridtruth/internal"
	"gridtruth/internal/bounded"
	"gridtruth/internal/canonical"
)

// Input is one lab invocation.
type Input struct {
	RunID       core.RunID
	RevisionID  core.RevisionID
	GeneratedAt core.Timestamp
	Pack        *domainScenario.DecisionPack
	Coverage    domainScenario.CoverageSnapshot
	Confidence  domainTruth.Tier
	Verifier    verdict.CheckStatus
	Policy      domainClaims.Policy
}

// Lab runs a registry of templates.
type Lab struct {
	registry *Registry
	opts     Options
	logger   *internal.Logger
}

// NewLab creates a lab over reg (the default registry when nil).
func NewLab(reg *Registry, opts Options) (*Lab, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if reg == nil {
		var err error
		if reg, err = NewRegistry(opts.MaxTemplates, DefaultTemplates()...); err != nil {
			return nil, err
		}
	}
	return &Lab{registry: reg, opts: opts, logger: internal.DefaultLogger.With("scenario")}, nil
}

// ValidatePack rejects pack shapes the templates cannot read safely.
func ValidatePack(p *domainScenario.DecisionPack) error {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool, len(p.Candidates))
	for i, c := range p.Candidates {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("%w: candidate %d has no id", core.ErrInvalidPack, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate candidate id %s", core.ErrInvalidPack, id)
		}
		seen[id] = true
		e := c.Economics
		for _, v := range []*float64{
			e.AnnualSavingsUSD, e.DemandSavingsUSD, e.ArbitrageSavingsUSD, e.DemandResponseUSD,
			e.AnnualKWhShifted, e.ExportAvoidedKWh, e.PeakKWReduction, e.CapexUSD, e.PaybackYears,
		} {
			if v != nil && !finite(*v) {
				return fmt.Errorf("%w: candidate %s has a non-finite economics figure", core.ErrInvalidPack, id)
			}
		}
		if !finite(c.PowerKW) || !finite(c.EnergyKWh) {
			return fmt.Errorf("%w: candidate %s has a non-finite size", core.ErrInvalidPack, id)
		}
	}
	for i, a := range p.TariffAlternatives {
		if strings.TrimSpace(a.TariffID) == "" {
			return fmt.Errorf("%w: tariff alternative %d has no id", core.ErrInvalidPack, i)
		}
		if (a.AnnualSavingsUSD != nil && !finite(*a.AnnualSavingsUSD)) || (a.AnnualCostUSD != nil && !finite(*a.AnnualCostUSD)) {
			return fmt.Errorf("%w: tariff alternative %s has a non-finite figure", core.ErrInvalidPack, a.TariffID)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Run evaluates every template and composes the versioned lab result.
func (l *Lab) Run(in Input) (*domainScenario.LabResult, error) {
	if in.GeneratedAt.IsZero() {
		return nil, core.ErrMissingTime
	}
	if err := ValidatePack(in.Pack); err != nil {
		return nil, err
	}
	if in.Coverage.ExportLimitKW != nil && !finite(*in.Coverage.ExportLimitKW) {
		return nil, fmt.Errorf("%w: export limit is not finite", core.ErrInvalidInput)
	}

	in.Coverage.TariffMatch = verdict.ParseTariffMatchStatus(string(in.Coverage.TariffMatch))
	confidence := in.Confidence
	if confidence.Rank() == 0 {
		confidence = domainTruth.TierC
	}
	verifierStatus := in.Verifier
	if verifierStatus == "" {
		verifierStatus = verdict.StatusPass
	}
	ctx := Context{
		Pack:       in.Pack,
		Coverage:   in.Coverage,
		Policy:     in.Policy,
		Verifier:   verifierStatus,
		Confidence: confidence,
		Options:    l.opts,
	}

	var results []domainScenario.Result
	warnings := gatingMarkers(in, verifierStatus)
	for _, t := range l.registry.Templates() {
		r, w := Evaluate(t, ctx)
		results = append(results, r)
		for _, msg := range w {
			warnings = append(warnings, t.ID+":"+msg)
		}
	}
	results = bounded.Take(results, l.opts.MaxScenarios)

	res := &domainScenario.LabResult{
		SchemaVersion: domainScenario.SchemaVersion,
		RunID:         in.RunID,
		RevisionID:    in.RevisionID,
		GeneratedAt:   in.GeneratedAt,
		Inputs: domainScenario.InputSummary{
			IntervalDays:   in.Coverage.IntervalDays,
			TariffMatch:    in.Coverage.TariffMatch,
			ConfidenceTier: confidence,
			VerifierStatus: verifierStatus,
			ClaimsStatus:   in.Policy.Status,
		},
		Scenarios: results,
		Frontier:  BuildFrontier(results, l.opts.MaxFrontierPoints),
		Blocked:   BlockedSummary(results, l.opts.MaxBlocked),
		Warnings:  bounded.Strings(warnings, l.opts.MaxWarnings),
	}
	if in.Pack != nil {
		res.Inputs.PackID = in.Pack.ID
		res.Inputs.SelectedCandidateID = in.Pack.SelectedCandidateID
		res.Inputs.CandidateCount = len(in.Pack.Candidates)
	}

	fp, err := canonical.Fingerprint(res)
	if err != nil {
		return nil, fmt.Errorf("fingerprint scenario lab: %w", err)
	}
	res.ID = core.DeriveID("scenario-lab", string(in.RunID), string(in.RevisionID), fp.String())

	l.logger.Debug("run %s: %d scenarios, %d on frontier, %d blocked", in.RunID,
		len(res.Scenarios), len(res.Frontier.Points), len(res.Blocked))
	return res, nil
}

// gatingMarkers turns the gating signals into lab warnings.
func gatingMarkers(in Input, verifierStatus verdict.CheckStatus) []string {
	var out []string
	if verifierStatus != verdict.StatusPass {
		out = append(out, "VERIFIER_STATUS:"+string(verifierStatus))
	}
	if in.Policy.Status != "" && in.Policy.Status != domainClaims.StatusAllow {
		out = append(out, "CLAIMS_POLICY:"+string(in.Policy.Status))
	}
	if in.Coverage.TariffMatch.Unresolved() {
		out = append(out, "TARIFF_MATCH:"+strings.ToUpper(string(in.Coverage.TariffMatch)))
	}
	if r := in.Coverage.HasRatchetHistory; r != nil && !*r {
		out = append(out, "RATCHET_HISTORY:MISSING")
	}
	if in.Pack == nil {
		out = append(out, "DECISION_PACK:MISSING")
	} else {
		for _, w := range in.Pack.Warnings {
			out = append(out, "PACK:"+w)
		}
	}
	return out
}
