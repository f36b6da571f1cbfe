// Package claims holds the claims-gating policy shapes: which financial and
// recommendation statements a report may make.
package claims

import "strings"

// Status is the overall gating outcome.
type Status string

const (
	StatusAllow   Status = "ALLOW"
	StatusLimited Status = "LIMITED"
	StatusBlock   Status = "BLOCK"
)

// Key names one gated claim type.
type Key string

const (
	AnnualUSDSavings            Key = "annualUsdSavings"
	DemandSavings               Key = "demandSavings"
	TariffSwitchRecommendation  Key = "tariffSwitchRecommendation"
	BatterySizingRecommendation Key = "batterySizingRecommendation"
	EnergyKWhSavings            Key = "energyKwhSavings"
)

// Keys lists every claim type in canonical order.
func Keys() []Key {
	return []Key{
		AnnualUSDSavings,
		BatterySizingRecommendation,
		DemandSavings,
		EnergyKWhSavings,
		TariffSwitchRecommendation,
	}
}

// AllowedClaims is the fixed-key set of claim flags.
type AllowedClaims struct {
	AnnualUSDSavings            bool `json:"annualUsdSavings"`
	DemandSavings               bool `json:"demandSavings"`
	TariffSwitchRecommendation  bool `json:"tariffSwitchRecommendation"`
	BatterySizingRecommendation bool `json:"batterySizingRecommendation"`
	EnergyKWhSavings            bool `json:"energyKwhSavings"`
}

// AllowAll returns the starting set with every claim allowed.
func AllowAll() AllowedClaims {
	return AllowedClaims{true, true, true, true, true}
}

// Allowed reports the flag for key. Unknown keys are never allowed.
func (a AllowedClaims) Allowed(key Key) bool {
	switch key {
	case AnnualUSDSavings:
		return a.AnnualUSDSavings
	case DemandSavings:
		return a.DemandSavings
	case TariffSwitchRecommendation:
		return a.TariffSwitchRecommendation
	case BatterySizingRecommendation:
		return a.BatterySizingRecommendation
	case EnergyKWhSavings:
		return a.EnergyKWhSavings
	}
	return false
}

// Block clears the flag for key.
func (a *AllowedClaims) Block(key Key) {
	switch key {
	case AnnualUSDSavings:
		a.AnnualUSDSavings = false
	case DemandSavings:
		a.DemandSavings = false
	case TariffSwitchRecommendation:
		a.TariffSwitchRecommendation = false
	case BatterySizingRecommendation:
		a.BatterySizingRecommendation = false
	case EnergyKWhSavings:
		a.EnergyKWhSavings = false
	}
}

// Blocked returns the disallowed keys in canonical order.
func (a AllowedClaims) Blocked() []Key {
	var out []Key
	for _, k := range Keys() {
		if !a.Allowed(k) {
			out = append(out, k)
		}
	}
	return out
}

// Severity grades a missing-information item.
type Severity string

const (
	SeverityRequired    Severity = "required"
	SeverityBlocking    Severity = "blocking"
	SeverityRecommended Severity = "recommended"
	SeverityInfo        Severity = "info"
)

// Blocks reports whether the severity gates money claims.
func (s Severity) Blocks() bool {
	switch Severity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case SeverityRequired, SeverityBlocking:
		return true
	}
	return false
}

// MissingInfoItem is one piece of data the upstream intake flagged as absent.
type MissingInfoItem struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
}

// Policy is the evaluated claims gate.
type Policy struct {
	Status           Status        `json:"status"`
	BlockedReasons   []string      `json:"blockedReasons"`
	AllowedClaims    AllowedClaims `json:"allowedClaims"`
	RequiredNextData []string      `json:"requiredNextData"`
}
