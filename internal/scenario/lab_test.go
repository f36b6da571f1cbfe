package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/core"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
	"gridtruth/internal/canonical"
	"gridtruth/internal/claims"
	"gridtruth/internal/testkit"
)

var labTime = core.NewTimestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

func boolPtr(b bool) *bool { return &b }

// labInput builds a consistent input: the claims policy is evaluated from the
// same coverage and verifier status the lab sees.
func labInput(t *testing.T, mutate func(*Input)) Input {
	t.Helper()
	in := Input{
		RunID:       "run-1",
		RevisionID:  "rev-1",
		GeneratedAt: labTime,
		Pack:        testkit.SampleDecisionPack(),
		Coverage:    testkit.SampleCoverage(),
		Confidence:  domainTruth.TierA,
		Verifier:    verdict.StatusPass,
	}
	if mutate != nil {
		mutate(&in)
	}
	policy, err := claims.Evaluate(claims.Input{
		VerifierStatus:    in.Verifier,
		HasRatchetHistory: in.Coverage.HasRatchetHistory,
		TariffMatch:       in.Coverage.TariffMatch,
	}, claims.DefaultOptions())
	require.NoError(t, err)
	in.Policy = policy
	return in
}

func runLab(t *testing.T, in Input) *domainScenario.LabResult {
	t.Helper()
	lab, err := NewLab(nil, DefaultOptions())
	require.NoError(t, err)
	res, err := lab.Run(in)
	require.NoError(t, err)
	return res
}

func byID(res *domainScenario.LabResult) map[string]domainScenario.Result {
	out := make(map[string]domainScenario.Result, len(res.Scenarios))
	for _, s := range res.Scenarios {
		out[s.ID] = s
	}
	return out
}

func ranIDs(res *domainScenario.LabResult) map[string]bool {
	out := map[string]bool{}
	for _, s := range res.Scenarios {
		if s.Status == domainScenario.StatusRan {
			out[s.ID] = true
		}
	}
	return out
}

func TestLabFullCoverage(t *testing.T) {
	res := runLab(t, labInput(t, nil))

	assert.Equal(t, domainScenario.SchemaVersion, res.SchemaVersion)
	assert.False(t, res.ID.IsEmpty())
	require.Len(t, res.Scenarios, 11)
	for _, s := range res.Scenarios {
		assert.Equal(t, domainScenario.StatusRan, s.Status, s.ID)
		assert.Equal(t, domainTruth.TierA, s.Confidence, s.ID)
		assert.LessOrEqual(t, len(s.Pros), DefaultMaxProsCons)
		assert.LessOrEqual(t, len(s.Cons), DefaultMaxProsCons)
		assert.Equal(t, s.ID, s.Provenance.TemplateID)
		assert.Equal(t, core.PackID("pack-sample-1"), s.Provenance.PackID)
	}

	got := byID(res)
	sel := got[TemplateBatterySelected]
	assert.Equal(t, "bat-200", sel.Provenance.CandidateID)
	assert.Equal(t, []string{"candidates.1.economics"}, sel.Provenance.SourcePaths)
	assert.Equal(t, 16000.0, *sel.KPIs.AnnualUSD)
	assert.Equal(t, 6.88, *sel.KPIs.PaybackYears)
	assert.Contains(t, sel.Pros, "Saves about $16000 per year")

	assert.Equal(t, "bat-400", got[TemplateDemandShaving].Provenance.CandidateID)
	assert.Nil(t, got[TemplateDemandShaving].KPIs.PaybackYears)
	assert.Equal(t, "bat-100", got[TemplateBestPayback].Provenance.CandidateID)
	assert.Equal(t, "bat-100", got[TemplateSmallestViable].Provenance.CandidateID)
	assert.Equal(t, 4200.0, *got[TemplateTariffBest].KPIs.AnnualUSD)
	assert.Equal(t, 100.0, *got[TemplateDemandResponse].KPIs.PeakKWReduction)

	var frontier []string
	for _, p := range res.Frontier.Points {
		frontier = append(frontier, p.ScenarioID)
	}
	assert.Equal(t, []string{
		TemplateBatterySelected,
		TemplateDemandShaving,
		TemplateBestPayback,
		TemplateSmallestViable,
		TemplateTariffBest,
		TemplateDemandResponse,
		TemplateLoadShiftSchedule,
		TemplateSolarExportLimit,
	}, frontier)

	assert.Empty(t, res.Blocked)
	assert.Equal(t, []string{"PACK:candidate_economics_use_2023_rates"}, res.Warnings)
	assert.Equal(t, domainScenario.InputSummary{
		PackID:              "pack-sample-1",
		SelectedCandidateID: "bat-200",
		CandidateCount:      3,
		IntervalDays:        365,
		TariffMatch:         verdict.TariffMatched,
		ConfidenceTier:      domainTruth.TierA,
		VerifierStatus:      verdict.StatusPass,
		ClaimsStatus:        domainClaims.StatusAllow,
	}, res.Inputs)
}

func TestDemandShavingBlockedWithoutRatchetHistory(t *testing.T) {
	in := labInput(t, func(in *Input) { in.Coverage.HasRatchetHistory = boolPtr(false) })
	assert.False(t, in.Policy.AllowedClaims.DemandSavings)

	res := runLab(t, in)
	ds := byID(res)[TemplateDemandShaving]
	assert.Equal(t, domainScenario.StatusBlocked, ds.Status)
	assert.Contains(t, ds.Gating.BlockedReasons, ReasonNoRatchetHistory)
	assert.Equal(t, []string{NeedRatchetHistory}, ds.Gating.RequiredNextData)
	assert.Equal(t, domainTruth.TierC, ds.Confidence)
	assert.Contains(t, ds.Cons, "Blocked until missing inputs are supplied")

	require.Len(t, res.Blocked, 1)
	assert.Equal(t, TemplateDemandShaving, res.Blocked[0].ID)
	assert.Contains(t, res.Warnings, "RATCHET_HISTORY:MISSING")
	assert.Contains(t, res.Warnings, "CLAIMS_POLICY:LIMITED")
}

func TestUnknownRatchetHistoryDowngrades(t *testing.T) {
	res := runLab(t, labInput(t, func(in *Input) { in.Coverage.HasRatchetHistory = nil }))
	ds := byID(res)[TemplateDemandShaving]
	assert.Equal(t, domainScenario.StatusRan, ds.Status)
	assert.Equal(t, domainTruth.TierB, ds.Confidence)
	assert.Contains(t, res.Warnings, TemplateDemandShaving+":"+WarnRatchetHistoryUnknown)
}

func TestClaimsPolicySuppressesSavings(t *testing.T) {
	in := labInput(t, nil)
	in.Policy.AllowedClaims.Block(domainClaims.AnnualUSDSavings)
	in.Policy.Status = domainClaims.StatusLimited

	got := byID(runLab(t, in))
	sel := got[TemplateBatterySelected]
	assert.Equal(t, domainScenario.StatusRan, sel.Status)
	assert.Nil(t, sel.KPIs.AnnualUSD)
	assert.Nil(t, sel.KPIs.PaybackYears)
	assert.NotNil(t, sel.KPIs.AnnualKWh)
	assert.NotNil(t, sel.KPIs.CapexUSD)
	assert.Contains(t, sel.Gating.BlockedReasons, ReasonLimitedByClaims)
	assert.Equal(t, domainTruth.TierB, sel.Confidence)
	assert.Contains(t, sel.Cons, "Savings figure withheld by claims policy")

	// Demand savings are gated by their own claim.
	assert.NotNil(t, got[TemplateDemandShaving].KPIs.AnnualUSD)
	assert.NotContains(t, got[TemplateDemandShaving].Gating.BlockedReasons, ReasonLimitedByClaims)
}

func TestVerifierFailPropagates(t *testing.T) {
	res := runLab(t, labInput(t, func(in *Input) { in.Verifier = verdict.StatusFail }))
	assert.Equal(t, domainClaims.StatusBlock, res.Inputs.ClaimsStatus)
	for _, s := range res.Scenarios {
		assert.Equal(t, domainScenario.StatusRan, s.Status, s.ID)
		assert.Contains(t, s.Gating.BlockedReasons, ReasonVerifierFail, s.ID)
	}
	got := byID(res)
	assert.Nil(t, got[TemplateBatterySelected].KPIs.AnnualUSD)
	assert.NotNil(t, got[TemplateBatterySelected].KPIs.CapexUSD)
	assert.Contains(t, res.Warnings, "VERIFIER_STATUS:FAIL")
	assert.Contains(t, res.Warnings, "CLAIMS_POLICY:BLOCK")
}

func TestUnresolvedTariffBlocksTariffTemplates(t *testing.T) {
	res := runLab(t, labInput(t, func(in *Input) { in.Coverage.TariffMatch = "Ambiguous" }))
	got := byID(res)
	for _, id := range []string{TemplateTariffBest, TemplateTariffStay, TemplateArbitrage} {
		assert.Equal(t, domainScenario.StatusBlocked, got[id].Status, id)
		assert.Equal(t, []string{NeedTariffConfirm}, got[id].Gating.RequiredNextData, id)
	}
	var blocked []string
	for _, b := range res.Blocked {
		blocked = append(blocked, b.ID)
	}
	assert.Equal(t, []string{TemplateArbitrage, TemplateTariffBest, TemplateTariffStay}, blocked)
	assert.Contains(t, res.Warnings, "TARIFF_MATCH:AMBIGUOUS")
}

func TestMissingInputs(t *testing.T) {
	res := runLab(t, labInput(t, func(in *Input) {
		in.Pack = nil
		in.Coverage = domainScenario.CoverageSnapshot{TariffMatch: verdict.TariffMatched}
	}))
	got := byID(res)
	assert.Equal(t, domainScenario.StatusRan, got[TemplateTariffStay].Status)
	assert.Equal(t, []string{ReasonMissingPack}, got[TemplateBatterySelected].Gating.BlockedReasons)
	assert.Equal(t, []string{NeedDRProgram}, got[TemplateDemandResponse].Gating.RequiredNextData)
	assert.Equal(t, []string{NeedExportLimit}, got[TemplateSolarExportLimit].Gating.RequiredNextData)
	assert.Equal(t, []string{NeedIntervalData}, got[TemplateLoadShiftSchedule].Gating.RequiredNextData)
	assert.Contains(t, res.Warnings, "DECISION_PACK:MISSING")

	require.Len(t, res.Blocked, 10)
	for i := 1; i < len(res.Blocked); i++ {
		a, b := res.Blocked[i-1], res.Blocked[i]
		assert.True(t, a.Category < b.Category || (a.Category == b.Category && a.ID < b.ID))
	}
	require.Len(t, res.Frontier.Points, 1)
	assert.Equal(t, TemplateTariffStay, res.Frontier.Points[0].ScenarioID)
}

func TestSkippedTemplates(t *testing.T) {
	res := runLab(t, labInput(t, func(in *Input) {
		in.Coverage.DRProgramAvailable = boolPtr(false)
		in.Pack.TariffAlternatives = nil
	}))
	got := byID(res)
	assert.Equal(t, domainScenario.StatusSkipped, got[TemplateDemandResponse].Status)
	assert.Equal(t, domainScenario.StatusSkipped, got[TemplateTariffBest].Status)
	assert.Equal(t, []string{NeedTariffAlts}, got[TemplateTariffBest].Gating.RequiredNextData)
	assert.Contains(t, got[TemplateDemandResponse].Cons, "Not applicable to this site")
	assert.Empty(t, res.Blocked)
}

// Adding a blocking condition never turns a scenario into RAN.
func TestBlockingConditionsNeverAddRanScenarios(t *testing.T) {
	conditions := map[string]func(*Input){
		"verifier fail": func(in *Input) { in.Verifier = verdict.StatusFail },
		"no ratchet":    func(in *Input) { in.Coverage.HasRatchetHistory = boolPtr(false) },
		"ambiguous":     func(in *Input) { in.Coverage.TariffMatch = verdict.TariffAmbiguous },
	}
	bases := map[string]func(*Input){
		"full":            nil,
		"no pack":         func(in *Input) { in.Pack = nil },
		"unknown ratchet": func(in *Input) { in.Coverage.HasRatchetHistory = nil },
	}
	for baseName, base := range bases {
		before := runLab(t, labInput(t, base))
		for name, cond := range conditions {
			after := runLab(t, labInput(t, func(in *Input) {
				if base != nil {
					base(in)
				}
				cond(in)
			}))
			for id := range ranIDs(after) {
				assert.True(t, ranIDs(before)[id], "%s + %s made %s run", baseName, name, id)
			}
		}
	}
}

func TestLabIsDeterministic(t *testing.T) {
	a := runLab(t, labInput(t, nil))
	b := runLab(t, labInput(t, nil))
	ab, err := canonical.Marshal(a)
	require.NoError(t, err)
	bb, err := canonical.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ab), string(bb))

	c := runLab(t, labInput(t, func(in *Input) { in.RunID = "run-2" }))
	assert.NotEqual(t, a.ID, c.ID)
}

func TestLabBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxScenarios = 4
	opts.MaxFrontierPoints = 2
	opts.MaxBlocked = 1
	opts.MaxWarnings = 1
	lab, err := NewLab(nil, opts)
	require.NoError(t, err)
	res, err := lab.Run(labInput(t, func(in *Input) {
		in.Pack = nil
		in.Verifier = verdict.StatusWarn
	}))
	require.NoError(t, err)
	assert.Len(t, res.Scenarios, 4)
	assert.LessOrEqual(t, len(res.Frontier.Points), 2)
	assert.Len(t, res.Blocked, 1)
	assert.Len(t, res.Warnings, 1)
}

func TestLabRejectsMalformedInput(t *testing.T) {
	lab, err := NewLab(nil, DefaultOptions())
	require.NoError(t, err)

	in := labInput(t, nil)
	in.GeneratedAt = core.Timestamp{}
	_, err = lab.Run(in)
	assert.ErrorIs(t, err, core.ErrMissingTime)

	in = labInput(t, nil)
	in.Pack.Candidates = append(in.Pack.Candidates, in.Pack.Candidates[0])
	res, err := lab.Run(in)
	assert.ErrorIs(t, err, core.ErrInvalidPack)
	assert.Nil(t, res)

	_, err = NewLab(nil, Options{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
