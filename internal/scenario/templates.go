package scenario

import (
	"fmt"
	"sort"

	domainClaims "gridtruth/domain/claims"
	domainScenario "gridtruth/domain/scenario"
	"gridtruth/internal/numeric"
)

// Gating reason codes.
const (
	ReasonLimitedByClaims       = "LIMITED_BY_CLAIMS_POLICY"
	ReasonVerifierFail          = "VERIFIER_FAIL"
	ReasonMissingPack           = "MISSING_DECISION_PACK"
	ReasonMissingSelected       = "MISSING_SELECTED_CANDIDATE"
	ReasonMissingEconomics      = "MISSING_ECONOMICS"
	ReasonNoRatchetHistory      = "NO_RATCHET_HISTORY"
	ReasonTariffUnresolved      = "TARIFF_MATCH_UNRESOLVED"
	ReasonNoTariffAlternatives  = "NO_TARIFF_ALTERNATIVES"
	ReasonNoSavingAlternative   = "NO_SAVING_ALTERNATIVE"
	ReasonMissingDRProgram      = "MISSING_DR_PROGRAM"
	ReasonDRProgramUnavailable  = "DR_PROGRAM_UNAVAILABLE"
	ReasonMissingExportLimit    = "MISSING_EXPORT_LIMIT"
	ReasonInsufficientInterval  = "INSUFFICIENT_INTERVAL_DATA"
	ReasonNoViableCandidate     = "NO_VIABLE_CANDIDATE"
	WarnRatchetHistoryUnknown   = "RATCHET_HISTORY_UNKNOWN"
	WarnDemandResponseNotPriced = "DR_VALUE_NOT_PRICED"
	WarnExportLimitBelowBattery = "EXPORT_LIMIT_BELOW_BATTERY_POWER"
)

// Required-next-data codes.
const (
	NeedDecisionPack      = "battery_decision_pack"
	NeedSelectedCandidate = "selected_battery_candidate"
	NeedCandidateEcon     = "candidate_economics"
	NeedRatchetHistory    = "ratchet_history"
	NeedTariffConfirm     = "tariff_confirmation"
	NeedTariffAlts        = "tariff_alternatives"
	NeedDRProgram         = "dr_program_eligibility"
	NeedExportLimit       = "export_limit_kw"
	NeedIntervalData      = "interval_data"
)

// Template ids.
const (
	TemplateBatterySelected   = "battery.selected"
	TemplateDemandShaving     = "battery.demand_shaving"
	TemplateArbitrage         = "battery.arbitrage"
	TemplateBestPayback       = "battery.best_payback"
	TemplateSmallestViable    = "battery.smallest_viable"
	TemplateTariffBest        = "tariff.best_alternative"
	TemplateTariffStay        = "tariff.stay_current"
	TemplateDemandResponse    = "reliability.demand_response"
	TemplateBackupReserve     = "reliability.backup_reserve"
	TemplateSolarExportLimit  = "ops.solar_export_limit"
	TemplateLoadShiftSchedule = "ops.load_shift_schedule"
)

var batteryClaims = []domainClaims.Key{domainClaims.AnnualUSDSavings, domainClaims.BatterySizingRecommendation}
var energyClaims = []domainClaims.Key{domainClaims.EnergyKWhSavings}

// DefaultTemplates returns the standard templates in priority order.
func DefaultTemplates() []Template {
	return []Template{
		{ID: TemplateBatterySelected, Title: "Selected battery candidate", Category: domainScenario.CategoryBattery,
			Priority: 10, USDClaims: batteryClaims, KWhClaims: energyClaims, Evaluate: selectedBattery},
		{ID: TemplateDemandShaving, Title: "Battery peak demand shaving", Category: domainScenario.CategoryBattery,
			Priority: 20, USDClaims: []domainClaims.Key{domainClaims.DemandSavings}, Evaluate: demandShaving},
		{ID: TemplateArbitrage, Title: "Battery time-of-use arbitrage", Category: domainScenario.CategoryBattery,
			Priority: 30, USDClaims: []domainClaims.Key{domainClaims.AnnualUSDSavings}, KWhClaims: energyClaims, Evaluate: arbitrage},
		{ID: TemplateBestPayback, Title: "Fastest payback battery", Category: domainScenario.CategoryBattery,
			Priority: 40, USDClaims: batteryClaims, KWhClaims: energyClaims, Evaluate: bestPayback},
		{ID: TemplateSmallestViable, Title: "Smallest viable battery", Category: domainScenario.CategoryBattery,
			Priority: 50, USDClaims: batteryClaims, KWhClaims: energyClaims, Evaluate: smallestViable},
		{ID: TemplateTariffBest, Title: "Switch to best alternative tariff", Category: domainScenario.CategoryTariff,
			Priority: 60, USDClaims: []domainClaims.Key{domainClaims.TariffSwitchRecommendation}, Evaluate: bestTariff},
		{ID: TemplateTariffStay, Title: "Stay on current tariff", Category: domainScenario.CategoryTariff,
			Priority: 70, Evaluate: stayOnTariff},
		{ID: TemplateDemandResponse, Title: "Enroll battery in demand response", Category: domainScenario.CategoryReliability,
			Priority: 80, USDClaims: []domainClaims.Key{domainClaims.AnnualUSDSavings}, Evaluate: demandResponse},
		{ID: TemplateBackupReserve, Title: "Hold battery as backup reserve", Category: domainScenario.CategoryReliability,
			Priority: 90, Evaluate: backupReserve},
		{ID: TemplateSolarExportLimit, Title: "Absorb solar above the export limit", Category: domainScenario.CategoryOps,
			Priority: 100, KWhClaims: energyClaims, Evaluate: solarExportLimit},
		{ID: TemplateLoadShiftSchedule, Title: "Shift flexible load to off-peak hours", Category: domainScenario.CategoryOps,
			Priority: 110, KWhClaims: energyClaims, Evaluate: loadShiftSchedule},
	}
}

func blocked(reason string, next ...string) Outcome {
	return Outcome{
		Status:           domainScenario.StatusBlocked,
		BlockedReasons:   []string{reason},
		RequiredNextData: next,
	}
}

func skipped(reason string) Outcome {
	return Outcome{Status: domainScenario.StatusSkipped, BlockedReasons: []string{reason}}
}

func ran(kpis domainScenario.KPIs, candidateID string, paths ...string) Outcome {
	return Outcome{Status: domainScenario.StatusRan, KPIs: kpis, CandidateID: candidateID, SourcePaths: paths}
}

func candidatePath(i int) string {
	return fmt.Sprintf("candidates.%d.economics", i)
}

// pick returns the index of the candidate whose score is best, ties broken
// by candidate id. Candidates without a score are ignored.
func pick(cands []domainScenario.BatteryCandidate, score func(domainScenario.BatteryCandidate) *float64, better func(a, b float64) bool) int {
	idx := make([]int, 0, len(cands))
	for i, c := range cands {
		if s := score(c); s != nil {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return -1
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := *score(cands[idx[a]]), *score(cands[idx[b]])
		if sa != sb {
			return better(sa, sb)
		}
		return cands[idx[a]].ID < cands[idx[b]].ID
	})
	return idx[0]
}

func higher(a, b float64) bool { return a > b }
func lower(a, b float64) bool { return a < b }

func selectedIndex(p *domainScenario.DecisionPack) int {
	if p == nil || p.SelectedCandidateID == "" {
		return -1
	}
	for i, c := range p.Candidates {
		if c.ID == p.SelectedCandidateID {
			return i
		}
	}
	return -1
}

func fullKPIs(e domainScenario.CandidateEconomics) domainScenario.KPIs {
	return domainScenario.KPIs{
		AnnualUSD:       e.AnnualSavingsUSD,
		AnnualKWh:       e.AnnualKWhShifted,
		PeakKWReduction: e.PeakKWReduction,
		CapexUSD:        e.CapexUSD,
		PaybackYears:    e.PaybackYears,
	}
}

func selectedBattery(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := selectedIndex(ctx.Pack)
	if i < 0 {
		return blocked(ReasonMissingSelected, NeedSelectedCandidate)
	}
	c := ctx.Pack.Candidates[i]
	if c.Economics.AnnualSavingsUSD == nil && c.Economics.AnnualKWhShifted == nil {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	return ran(fullKPIs(c.Economics), c.ID, candidatePath(i))
}

func demandShaving(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	ratchet := ctx.Coverage.HasRatchetHistory
	if ratchet != nil && !*ratchet {
		return blocked(ReasonNoRatchetHistory, NeedRatchetHistory)
	}
	i := pick(ctx.Pack.Candidates, func(c domainScenario.BatteryCandidate) *float64 {
		if c.Economics.DemandSavingsUSD == nil {
			return nil
		}
		return c.Economics.PeakKWReduction
	}, higher)
	if i < 0 {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	c := ctx.Pack.Candidates[i]
	out := ran(domainScenario.KPIs{
		AnnualUSD:       c.Economics.DemandSavingsUSD,
		PeakKWReduction: c.Economics.PeakKWReduction,
		CapexUSD:        c.Economics.CapexUSD,
	}, c.ID, candidatePath(i))
	if ratchet == nil {
		out.Warnings = append(out.Warnings, WarnRatchetHistoryUnknown)
		out.Downgrade = true
	}
	return out
}

func arbitrage(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	if ctx.Coverage.TariffMatch.Unresolved() {
		return blocked(ReasonTariffUnresolved, NeedTariffConfirm)
	}
	i := pick(ctx.Pack.Candidates, func(c domainScenario.BatteryCandidate) *float64 {
		return c.Economics.ArbitrageSavingsUSD
	}, higher)
	if i < 0 {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	c := ctx.Pack.Candidates[i]
	return ran(domainScenario.KPIs{
		AnnualUSD: c.Economics.ArbitrageSavingsUSD,
		AnnualKWh: c.Economics.AnnualKWhShifted,
		CapexUSD:  c.Economics.CapexUSD,
	}, c.ID, candidatePath(i))
}

func bestPayback(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := pick(ctx.Pack.Candidates, func(c domainScenario.BatteryCandidate) *float64 {
		if p := c.Economics.PaybackYears; p != nil && *p > 0 {
			return p
		}
		return nil
	}, lower)
	if i < 0 {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	c := ctx.Pack.Candidates[i]
	return ran(fullKPIs(c.Economics), c.ID, candidatePath(i))
}

func smallestViable(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := pick(ctx.Pack.Candidates, func(c domainScenario.BatteryCandidate) *float64 {
		if s := c.Economics.AnnualSavingsUSD; s == nil || *s <= 0 || c.EnergyKWh <= 0 {
			return nil
		}
		return numeric.Ptr(c.EnergyKWh)
	}, lower)
	if i < 0 {
		return skipped(ReasonNoViableCandidate)
	}
	c := ctx.Pack.Candidates[i]
	return ran(fullKPIs(c.Economics), c.ID, candidatePath(i))
}

func bestTariff(ctx Context) Outcome {
	if ctx.Coverage.TariffMatch.Unresolved() {
		return blocked(ReasonTariffUnresolved, NeedTariffConfirm)
	}
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	alts := ctx.Pack.TariffAlternatives
	if len(alts) == 0 {
		out := skipped(ReasonNoTariffAlternatives)
		out.RequiredNextData = []string{NeedTariffAlts}
		return out
	}
	best := -1
	for i, a := range alts {
		s := a.AnnualSavingsUSD
		if s == nil || *s <= 0 {
			continue
		}
		if best < 0 || *s > *alts[best].AnnualSavingsUSD ||
			(*s == *alts[best].AnnualSavingsUSD && a.TariffID < alts[best].TariffID) {
			best = i
		}
	}
	if best < 0 {
		return skipped(ReasonNoSavingAlternative)
	}
	return ran(domainScenario.KPIs{
		AnnualUSD: alts[best].AnnualSavingsUSD,
		CapexUSD:  numeric.Ptr(0),
	}, "", fmt.Sprintf("tariffAlternatives.%d", best))
}

func stayOnTariff(ctx Context) Outcome {
	if ctx.Coverage.TariffMatch.Unresolved() {
		return blocked(ReasonTariffUnresolved, NeedTariffConfirm)
	}
	return ran(domainScenario.KPIs{
		AnnualUSD: numeric.Ptr(0),
		CapexUSD:  numeric.Ptr(0),
	}, "", "coverage.tariffMatch")
}

func demandResponse(ctx Context) Outcome {
	dr := ctx.Coverage.DRProgramAvailable
	if dr == nil {
		return blocked(ReasonMissingDRProgram, NeedDRProgram)
	}
	if !*dr {
		return skipped(ReasonDRProgramUnavailable)
	}
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := selectedIndex(ctx.Pack)
	if i < 0 {
		return blocked(ReasonMissingSelected, NeedSelectedCandidate)
	}
	c := ctx.Pack.Candidates[i]
	out := ran(domainScenario.KPIs{
		AnnualUSD:       c.Economics.DemandResponseUSD,
		PeakKWReduction: numeric.Ptr(c.PowerKW),
	}, c.ID, candidatePath(i), "coverage.drProgramAvailable")
	if c.Economics.DemandResponseUSD == nil {
		out.Warnings = append(out.Warnings, WarnDemandResponseNotPriced)
	}
	return out
}

func backupReserve(ctx Context) Outcome {
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := selectedIndex(ctx.Pack)
	if i < 0 {
		return blocked(ReasonMissingSelected, NeedSelectedCandidate)
	}
	c := ctx.Pack.Candidates[i]
	if c.EnergyKWh <= 0 {
		return skipped(ReasonNoViableCandidate)
	}
	return ran(domainScenario.KPIs{CapexUSD: c.Economics.CapexUSD}, c.ID, candidatePath(i))
}

func solarExportLimit(ctx Context) Outcome {
	limit := ctx.Coverage.ExportLimitKW
	if limit == nil {
		return blocked(ReasonMissingExportLimit, NeedExportLimit)
	}
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := selectedIndex(ctx.Pack)
	if i < 0 {
		return blocked(ReasonMissingSelected, NeedSelectedCandidate)
	}
	c := ctx.Pack.Candidates[i]
	if c.Economics.ExportAvoidedKWh == nil {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	out := ran(domainScenario.KPIs{AnnualKWh: c.Economics.ExportAvoidedKWh}, c.ID,
		candidatePath(i), "coverage.exportLimitKw")
	if *limit < c.PowerKW {
		out.Warnings = append(out.Warnings, WarnExportLimitBelowBattery)
	}
	return out
}

func loadShiftSchedule(ctx Context) Outcome {
	if ctx.Coverage.IntervalDays < ctx.Options.MinLoadShiftDays {
		return blocked(ReasonInsufficientInterval, NeedIntervalData)
	}
	if ctx.Pack == nil {
		return blocked(ReasonMissingPack, NeedDecisionPack)
	}
	i := selectedIndex(ctx.Pack)
	if i < 0 {
		return blocked(ReasonMissingSelected, NeedSelectedCandidate)
	}
	c := ctx.Pack.Candidates[i]
	if c.Economics.AnnualKWhShifted == nil {
		return blocked(ReasonMissingEconomics, NeedCandidateEcon)
	}
	return ran(domainScenario.KPIs{
		AnnualKWh: c.Economics.AnnualKWhShifted,
		CapexUSD:  numeric.Ptr(0),
	}, c.ID, candidatePath(i), "coverage.intervalDays")
}
