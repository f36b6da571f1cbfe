package verifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridtruth/domain/core"
	"gridtruth/domain/verdict"
	"gridtruth/internal/numeric"
)

func strPtr(s string) *string { return &s }

const completePack = `{
  "provenance": {
    "runId": "run-1",
    "revisionId": null,
    "truthSnapshotId": "snap-1",
    "decisionPackId": "pack-1",
    "tariffSnapshotId": null,
    "generatedAt": "2024-03-01T12:00:00Z"
  }
}`

func withOptions(in Input) Input {
	in.Options = DefaultOptions()
	return in
}

func TestEconomicsReconciliation(t *testing.T) {
	tests := []struct {
		name  string
		audit *verdict.EconomicsAudit
		want  []verdict.CheckStatus
	}{
		{name: "no audit", audit: nil, want: nil},
		{
			name:  "within a cent",
			audit: &verdict.EconomicsAudit{TotalUSD: 100.00, LineItems: []verdict.LineItem{{AmountUSD: 60}, {AmountUSD: 39.995}}},
			want:  []verdict.CheckStatus{verdict.StatusPass},
		},
		{
			name:  "reported sum drifts",
			audit: &verdict.EconomicsAudit{TotalUSD: 100.00, LineItemSumUSD: numeric.Ptr(99.5)},
			want:  []verdict.CheckStatus{verdict.StatusFail},
		},
		{
			name:  "line items drift",
			audit: &verdict.EconomicsAudit{TotalUSD: 100.00, LineItems: []verdict.LineItem{{AmountUSD: 60}, {AmountUSD: 39.98}}},
			want:  []verdict.CheckStatus{verdict.StatusFail},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EconomicsReconciliation(withOptions(Input{Analysis: verdict.Analysis{Audit: tt.audit}}))
			require.Len(t, got, len(tt.want))
			for i, r := range got {
				assert.Equal(t, tt.want[i], r.Status)
				assert.Equal(t, verdict.CodeEconomicsReconciliation, r.Code)
				require.NotNil(t, r.Tolerance)
				assert.Equal(t, 0.01, *r.Tolerance)
			}
		})
	}
}

func TestIntervalSanity(t *testing.T) {
	good := verdict.IntervalSummary{
		PointCount:         35 * 96,
		GranularityMinutes: 15,
		StartDate:          "2024-01-01",
		EndDate:            "2024-02-04",
		CoverageDays:       35,
	}
	tests := []struct {
		name      string
		mutate    func(*verdict.IntervalSummary)
		want      verdict.CheckStatus
		wantPaths []string
	}{
		{name: "consistent", mutate: func(*verdict.IntervalSummary) {}, want: verdict.StatusPass},
		{
			name:   "granularity inferred from range",
			mutate: func(s *verdict.IntervalSummary) { s.GranularityMinutes = 0 },
			want:   verdict.StatusPass,
		},
		{
			name:      "negative points",
			mutate:    func(s *verdict.IntervalSummary) { s.PointCount = -1 },
			want:      verdict.StatusFail,
			wantPaths: []string{"interval.pointCount"},
		},
		{
			name:      "reversed range",
			mutate:    func(s *verdict.IntervalSummary) { s.StartDate, s.EndDate = s.EndDate, s.StartDate },
			want:      verdict.StatusFail,
			wantPaths: []string{"interval.endDate"},
		},
		{
			name:      "unparseable start",
			mutate:    func(s *verdict.IntervalSummary) { s.StartDate = "Jan 1" },
			want:      verdict.StatusFail,
			wantPaths: []string{"interval.startDate"},
		},
		{
			name:      "hard invalid intake",
			mutate:    func(s *verdict.IntervalSummary) { s.IntakeWarnings = []string{"minor_gap", "interval_non_monotonic"} },
			want:      verdict.StatusFail,
			wantPaths: []string{"interval.intakeWarnings"},
		},
		{
			name:   "declared coverage within 30 days",
			mutate: func(s *verdict.IntervalSummary) { s.CoverageDays = 60 },
			want:   verdict.StatusPass,
		},
		{
			name:      "declared coverage far off",
			mutate:    func(s *verdict.IntervalSummary) { s.CoverageDays = 70 },
			want:      verdict.StatusFail,
			wantPaths: []string{"interval.coverageDays"},
		},
		{
			name: "relative tolerance on long series",
			mutate: func(s *verdict.IntervalSummary) {
				s.PointCount = 365 * 96
				s.EndDate = "2024-12-30"
				s.CoverageDays = 300
			},
			want: verdict.StatusPass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := good
			tt.mutate(&iv)
			got := IntervalSanity(withOptions(Input{Analysis: verdict.Analysis{Interval: &iv}}))
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Status, got[0].Message)
			for _, p := range tt.wantPaths {
				assert.Contains(t, got[0].Paths, p)
			}
		})
	}
}

func TestRateContextDedup(t *testing.T) {
	deduped := &verdict.EconomicsAudit{LineItems: []verdict.LineItem{
		{ID: "delivery", Kind: "delivery"},
		{ID: "gen", Kind: "generation", Markers: []string{DedupMarker}},
	}}
	plain := &verdict.EconomicsAudit{LineItems: []verdict.LineItem{
		{ID: "delivery", Kind: "delivery", Markers: []string{DedupMarker}},
		{ID: "gen", Kind: "generation"},
	}}
	cca := &verdict.RateContext{ProviderType: "cca", AddersSnapshotID: strPtr("adders-1"), ExitFeeSnapshotID: strPtr("pcia-1")}
	tests := []struct {
		name  string
		rc    *verdict.RateContext
		audit *verdict.EconomicsAudit
		want  []verdict.CheckStatus
	}{
		{name: "not CCA", rc: &verdict.RateContext{ProviderType: "IOU", AddersSnapshotID: strPtr("a"), ExitFeeSnapshotID: strPtr("b")}, audit: plain},
		{name: "missing exit fee snapshot", rc: &verdict.RateContext{ProviderType: "CCA", AddersSnapshotID: strPtr("a")}, audit: plain},
		{name: "marker on supply line", rc: cca, audit: deduped, want: []verdict.CheckStatus{verdict.StatusPass}},
		{name: "marker on wrong line", rc: cca, audit: plain, want: []verdict.CheckStatus{verdict.StatusFail}},
		{name: "no audit", rc: cca, want: []verdict.CheckStatus{verdict.StatusFail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RateContextDedup(withOptions(Input{Analysis: verdict.Analysis{RateContext: tt.rc, Audit: tt.audit}}))
			require.Len(t, got, len(tt.want))
			for i, r := range got {
				assert.Equal(t, tt.want[i], r.Status)
			}
		})
	}
}

func TestTariffMatchSanity(t *testing.T) {
	financialPack := `{"financials": {"annualSavingsUsd": 1234.5}}`
	nullPack := `{"financials": {"annualSavingsUsd": null}}`
	tests := []struct {
		name      string
		status    verdict.TariffMatchStatus
		dependent bool
		pack      string
		want      []verdict.CheckStatus
	}{
		{name: "matched", status: verdict.TariffMatched, dependent: true, pack: financialPack},
		{name: "no tariff economics", status: verdict.TariffAmbiguous, dependent: false, pack: financialPack},
		{name: "unresolved without pack", status: verdict.TariffNotFound, dependent: true, want: []verdict.CheckStatus{verdict.StatusWarn}},
		{name: "unresolved with suppressed totals", status: verdict.TariffUnknown, dependent: true, pack: nullPack, want: []verdict.CheckStatus{verdict.StatusWarn}},
		{name: "unresolved but totals published", status: verdict.TariffUnsupported, dependent: true, pack: financialPack, want: []verdict.CheckStatus{verdict.StatusFail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := withOptions(Input{Analysis: verdict.Analysis{TariffMatch: tt.status, HasTariffDependentEconomics: tt.dependent}})
			if tt.pack != "" {
				in.Pack = json.RawMessage(tt.pack)
			}
			got := TariffMatchSanity(in)
			require.Len(t, got, len(tt.want))
			for i, r := range got {
				assert.Equal(t, tt.want[i], r.Status)
			}
		})
	}
}

func TestProvenanceHeader(t *testing.T) {
	tests := []struct {
		name      string
		pack      string
		want      []verdict.CheckStatus
		wantPaths []string
	}{
		{name: "no pack"},
		{name: "complete with nulls", pack: completePack, want: []verdict.CheckStatus{verdict.StatusPass}},
		{
			name:      "missing keys",
			pack:      `{"provenance": {"runId": "r", "revisionId": "v", "generatedAt": null}}`,
			want:      []verdict.CheckStatus{verdict.StatusFail},
			wantPaths: []string{"provenance.decisionPackId", "provenance.tariffSnapshotId", "provenance.truthSnapshotId"},
		},
		{
			name:      "no header",
			pack:      `{"financials": {}}`,
			want:      []verdict.CheckStatus{verdict.StatusFail},
			wantPaths: ProvenanceKeys,
		},
		{
			name: "wrong type",
			pack: `{"provenance": {"runId": 7, "revisionId": null, "truthSnapshotId": null,
				"decisionPackId": null, "tariffSnapshotId": null, "generatedAt": null}}`,
			want:      []verdict.CheckStatus{verdict.StatusFail},
			wantPaths: []string{"provenance.runId"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := withOptions(Input{})
			if tt.pack != "" {
				in.Pack = json.RawMessage(tt.pack)
			}
			got := ProvenanceHeader(in)
			require.Len(t, got, len(tt.want))
			for i, r := range got {
				assert.Equal(t, tt.want[i], r.Status)
				if tt.wantPaths != nil {
					assert.ElementsMatch(t, tt.wantPaths, r.Paths)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	paths := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		paths = append(paths, string(rune('a'+i%26))+"path")
	}
	r := Normalize(verdict.CheckResult{Status: "weird", Paths: paths}, DefaultMaxPaths)
	assert.Equal(t, verdict.CodeUnnamed, r.Code)
	assert.Equal(t, verdict.StatusWarn, r.Status)
	assert.Equal(t, "UNNAMED_CHECK: warn", r.Message)
	assert.Len(t, r.Paths, 24)
	assert.IsIncreasing(t, r.Paths)

	r = Normalize(verdict.CheckResult{Code: " custom_check ", Status: "failed", Message: " boom "}, DefaultMaxPaths)
	assert.Equal(t, verdict.CheckCode("CUSTOM_CHECK"), r.Code)
	assert.Equal(t, verdict.StatusFail, r.Status)
	assert.Equal(t, "boom", r.Message)
	assert.Nil(t, r.Paths)
}

func TestRunSortsAndTallies(t *testing.T) {
	custom := func(Input) []verdict.CheckResult {
		return []verdict.CheckResult{
			{Code: "ZZZ", Status: verdict.StatusPass, Message: "b"},
			{Code: "AAA", Status: verdict.StatusPass, Message: "a"},
			{Code: "AAA", Status: verdict.StatusFail, Message: "z"},
			{Code: "AAA", Status: verdict.StatusWarn, Message: "m"},
		}
	}
	res, err := Run(Input{}, custom)
	require.NoError(t, err)
	require.Len(t, res.Checks, 4)
	assert.Equal(t, []string{"z", "m", "a", "b"}, []string{
		res.Checks[0].Message, res.Checks[1].Message, res.Checks[2].Message, res.Checks[3].Message,
	})
	assert.Equal(t, verdict.Counts{Pass: 2, Warn: 1, Fail: 1}, res.Counts)
	assert.Equal(t, verdict.StatusFail, res.Overall)
	assert.True(t, res.Failed())
}

func TestRunDefaultBattery(t *testing.T) {
	analysis := verdict.Analysis{
		Audit:       &verdict.EconomicsAudit{TotalUSD: 10, LineItems: []verdict.LineItem{{ID: "a", Kind: "delivery", AmountUSD: 10}}},
		Interval:    &verdict.IntervalSummary{PointCount: 96, GranularityMinutes: 15, StartDate: "2024-01-01", EndDate: "2024-01-01", CoverageDays: 1},
		TariffMatch: verdict.TariffMatched,
	}
	res, err := Run(Input{Analysis: analysis, Pack: json.RawMessage(completePack)})
	require.NoError(t, err)
	assert.Equal(t, verdict.StatusPass, res.Overall)
	codes := make([]verdict.CheckCode, len(res.Checks))
	for i, c := range res.Checks {
		codes[i] = c.Code
	}
	assert.Equal(t, []verdict.CheckCode{
		verdict.CodeEconomicsReconciliation, verdict.CodeIntervalSanity, verdict.CodeProvenanceHeader,
	}, codes)

	analysis.TariffMatch = verdict.TariffAmbiguous
	analysis.HasTariffDependentEconomics = true
	res, err = Run(Input{Analysis: analysis})
	require.NoError(t, err)
	assert.Equal(t, verdict.StatusWarn, res.Overall)

	empty, err := Run(Input{})
	require.NoError(t, err)
	assert.Equal(t, verdict.StatusPass, empty.Overall)
	assert.NotNil(t, empty.Checks)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := Run(Input{Pack: json.RawMessage(`{"provenance":`)})
	assert.ErrorIs(t, err, core.ErrInvalidPack)

	_, err = Run(Input{Options: Options{MaxPaths: -1}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCheckByCode(t *testing.T) {
	c, err := CheckByCode("interval_sanity")
	require.NoError(t, err)
	assert.Nil(t, c(Input{}))

	_, err = CheckByCode("nope")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
