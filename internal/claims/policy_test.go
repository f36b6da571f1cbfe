package claims

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/verdict"
)

func boolPtr(b bool) *bool { return &b }

func cleanInput() Input {
	return Input{
		VerifierStatus:    verdict.StatusPass,
		HasRatchetHistory: boolPtr(true),
		TariffMatch:       verdict.TariffMatched,
	}
}

func evaluate(t *testing.T, in Input) domainClaims.Policy {
	t.Helper()
	p, err := Evaluate(in, DefaultOptions())
	require.NoError(t, err)
	return p
}

func TestEvaluateRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Input)
		wantStatus  domainClaims.Status
		wantBlocked []domainClaims.Key
		wantReasons []string
		wantNext    []string
	}{
		{
			name:       "clean",
			mutate:     func(*Input) {},
			wantStatus: domainClaims.StatusAllow,
		},
		{
			name:        "verifier fail blocks everything",
			mutate:      func(in *Input) { in.VerifierStatus = verdict.StatusFail },
			wantStatus:  domainClaims.StatusBlock,
			wantBlocked: domainClaims.Keys(),
			wantReasons: []string{ReasonVerifierFail},
		},
		{
			name:       "verifier warn changes nothing",
			mutate:     func(in *Input) { in.VerifierStatus = verdict.StatusWarn },
			wantStatus: domainClaims.StatusAllow,
		},
		{
			name:        "required inputs missing",
			mutate:      func(in *Input) { in.RequiredInputsMissing = []string{"utility_bill_pdf", "meter_id"} },
			wantStatus:  domainClaims.StatusLimited,
			wantBlocked: []domainClaims.Key{domainClaims.AnnualUSDSavings, domainClaims.BatterySizingRecommendation, domainClaims.DemandSavings},
			wantReasons: []string{ReasonAnnualUSDBlocked, ReasonRequiredInputsMissing},
			wantNext:    []string{"meter_id", "utility_bill_pdf"},
		},
		{
			name: "blocking missing info",
			mutate: func(in *Input) {
				in.MissingInfo = []domainClaims.MissingInfoItem{
					{ID: "rate_schedule", Severity: "Blocking"},
					{ID: "hvac_inventory", Severity: domainClaims.SeverityRecommended},
				}
			},
			wantStatus:  domainClaims.StatusLimited,
			wantBlocked: []domainClaims.Key{domainClaims.AnnualUSDSavings, domainClaims.BatterySizingRecommendation, domainClaims.DemandSavings},
			wantReasons: []string{ReasonRequiredMissingInfo + ":rate_schedule"},
			wantNext:    []string{"rate_schedule"},
		},
		{
			name:        "no ratchet history",
			mutate:      func(in *Input) { in.HasRatchetHistory = boolPtr(false) },
			wantStatus:  domainClaims.StatusLimited,
			wantBlocked: []domainClaims.Key{domainClaims.DemandSavings},
			wantReasons: []string{ReasonNoRatchetHistory},
		},
		{
			name:       "unknown ratchet history",
			mutate:     func(in *Input) { in.HasRatchetHistory = nil },
			wantStatus: domainClaims.StatusAllow,
		},
		{
			name:        "ambiguous tariff",
			mutate:      func(in *Input) { in.TariffMatch = verdict.TariffAmbiguous },
			wantStatus:  domainClaims.StatusLimited,
			wantBlocked: []domainClaims.Key{domainClaims.TariffSwitchRecommendation},
			wantReasons: []string{ReasonTariffUnresolved + ":ambiguous"},
		},
		{
			name:        "absent tariff status counts as unknown",
			mutate:      func(in *Input) { in.TariffMatch = "" },
			wantStatus:  domainClaims.StatusLimited,
			wantBlocked: []domainClaims.Key{domainClaims.TariffSwitchRecommendation},
			wantReasons: []string{ReasonTariffUnresolved + ":unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cleanInput()
			tt.mutate(&in)
			p := evaluate(t, in)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantBlocked, p.AllowedClaims.Blocked())
			for _, r := range tt.wantReasons {
				assert.Contains(t, p.BlockedReasons, r)
			}
			if tt.wantNext == nil {
				assert.Empty(t, p.RequiredNextData)
			} else {
				assert.Equal(t, tt.wantNext, p.RequiredNextData)
			}
			assert.NotNil(t, p.BlockedReasons)
			assert.NotNil(t, p.RequiredNextData)
		})
	}
}

func TestVerifierFailForcesBlock(t *testing.T) {
	in := cleanInput()
	in.VerifierStatus = verdict.StatusFail
	p := evaluate(t, in)
	assert.Equal(t, domainClaims.StatusBlock, p.Status)
	assert.Equal(t, domainClaims.AllowedClaims{}, p.AllowedClaims)
}

func TestEngineWarningSummary(t *testing.T) {
	in := cleanInput()
	in.EngineWarnings = []string{"missing_weather_daily", "missing_weather_daily", "seasonal_profile_backoff"}
	p := evaluate(t, in)
	assert.Equal(t, domainClaims.StatusAllow, p.Status)
	assert.Equal(t, []string{ReasonEngineWarnings + ":2"}, p.BlockedReasons)
}

func TestListsAreBounded(t *testing.T) {
	in := cleanInput()
	for i := 0; i < 80; i++ {
		in.RequiredInputsMissing = append(in.RequiredInputsMissing, fmt.Sprintf("input_%02d", i))
		in.MissingInfo = append(in.MissingInfo, domainClaims.MissingInfoItem{ID: fmt.Sprintf("info_%02d", i), Severity: domainClaims.SeverityRequired})
	}
	in.EngineWarnings = []string{"w"}
	p := evaluate(t, in)
	assert.Len(t, p.RequiredNextData, DefaultMaxRequiredNextData)
	assert.IsIncreasing(t, p.RequiredNextData)
	require.Len(t, p.BlockedReasons, DefaultMaxBlockedReasons)
	assert.Equal(t, ReasonEngineWarnings+":1", p.BlockedReasons[len(p.BlockedReasons)-1])
	assert.IsIncreasing(t, p.BlockedReasons[:len(p.BlockedReasons)-1])
}

// Every blocking condition, added on top of any other, never re-allows a claim.
func TestBlockingConditionsAreMonotone(t *testing.T) {
	conditions := []func(*Input){
		func(in *Input) { in.VerifierStatus = verdict.StatusFail },
		func(in *Input) { in.HasRatchetHistory = boolPtr(false) },
		func(in *Input) { in.TariffMatch = verdict.TariffNotFound },
		func(in *Input) { in.RequiredInputsMissing = []string{"bill"} },
	}
	allowedCount := func(p domainClaims.Policy) int {
		return len(domainClaims.Keys()) - len(p.AllowedClaims.Blocked())
	}
	for mask := 0; mask < 1<<len(conditions); mask++ {
		base := cleanInput()
		for i, c := range conditions {
			if mask&(1<<i) != 0 {
				c(&base)
			}
		}
		before := evaluate(t, base)
		for i, c := range conditions {
			more := base
			c(&more)
			after := evaluate(t, more)
			for _, k := range domainClaims.Keys() {
				if !before.AllowedClaims.Allowed(k) {
					assert.False(t, after.AllowedClaims.Allowed(k), "mask %b + condition %d re-allowed %s", mask, i, k)
				}
			}
			assert.LessOrEqual(t, allowedCount(after), allowedCount(before))
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	_, err := Evaluate(cleanInput(), Options{MaxBlockedReasons: 1, MaxRequiredNextData: 1})
	assert.Error(t, err)
}
