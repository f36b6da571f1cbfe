package testkit

import (
	"gridtruth/domain/core"
	"gridtruth/domain/scenario"
	"gridtruth/domain/verdict"
)

func fp(v float64) *float64 { return &v }

func bp(v bool) *bool { return &v }

// SampleDecisionPack is a three-candidate battery decision pack with two
// priced tariff alternatives. Candidate "bat-200" is selected.
func SampleDecisionPack() *scenario.DecisionPack {
	return &scenario.DecisionPack{
		ID:                  core.PackID("pack-sample-1"),
		SelectedCandidateID: "bat-200",
		Candidates: []scenario.BatteryCandidate{
			{
				ID: "bat-100", Label: "50 kW / 100 kWh", PowerKW: 50, EnergyKWh: 100,
				Economics: scenario.CandidateEconomics{
					AnnualSavingsUSD:    fp(9000),
					DemandSavingsUSD:    fp(6000),
					ArbitrageSavingsUSD: fp(3000),
					AnnualKWhShifted:    fp(30000),
					PeakKWReduction:     fp(45),
					CapexUSD:            fp(60000),
					PaybackYears:        fp(6.67),
				},
			},
			{
				ID: "bat-200", Label: "100 kW / 200 kWh", PowerKW: 100, EnergyKWh: 200,
				Economics: scenario.CandidateEconomics{
					AnnualSavingsUSD:    fp(16000),
					DemandSavingsUSD:    fp(11000),
					ArbitrageSavingsUSD: fp(5000),
					DemandResponseUSD:   fp(2500),
					AnnualKWhShifted:    fp(58000),
					ExportAvoidedKWh:    fp(12000),
					PeakKWReduction:     fp(90),
					CapexUSD:            fp(110000),
					PaybackYears:        fp(6.88),
				},
			},
			{
				ID: "bat-400", Label: "200 kW / 400 kWh", PowerKW: 200, EnergyKWh: 400,
				Economics: scenario.CandidateEconomics{
					AnnualSavingsUSD:    fp(21000),
					DemandSavingsUSD:    fp(14000),
					ArbitrageSavingsUSD: fp(7000),
					AnnualKWhShifted:    fp(90000),
					PeakKWReduction:     fp(120),
					CapexUSD:            fp(230000),
					PaybackYears:        fp(10.95),
				},
			},
		},
		TariffAlternatives: []scenario.TariffAlternative{
			{TariffID: "B-19", AnnualCostUSD: fp(182000), AnnualSavingsUSD: fp(4200)},
			{TariffID: "B-20", AnnualCostUSD: fp(189000), AnnualSavingsUSD: fp(-2800)},
		},
		Constraints: []string{"max_power_kw:200"},
		Warnings:    []string{"candidate_economics_use_2023_rates"},
	}
}

// SampleCoverage is a fully covered site: matched tariff, ratchet history,
// demand response available and a known export limit.
func SampleCoverage() scenario.CoverageSnapshot {
	return scenario.CoverageSnapshot{
		IntervalDays:       365,
		TariffMatch:        verdict.TariffMatched,
		HasRatchetHistory:  bp(true),
		ProviderType:       "IOU",
		DRProgramAvailable: bp(true),
		ExportLimitKW:      fp(150),
	}
}
