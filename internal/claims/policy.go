// Package claims evaluates which claims a report may make from the verifier
// outcome and the data coverage. Rules only ever remove permissions.
package claims

import (
	"fmt"
	"strings"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/verdict"
	"gridtruth/internal"
	"gridtruth/internal/bounded"
)

// Caps on the policy lists.
const (
	DefaultMaxBlockedReasons   = 50
	DefaultMaxRequiredNextData = 30
)

// Blocked reason codes.
const (
	ReasonVerifierFail          = "VERIFIER_FAIL"
	ReasonRequiredInputsMissing = "REQUIRED_INPUTS_MISSING"
	ReasonRequiredMissingInfo   = "REQUIRED_MISSING_INFO"
	ReasonNoRatchetHistory      = "NO_RATCHET_HISTORY"
	ReasonTariffUnresolved      = "TARIFF_MATCH_UNRESOLVED"
	ReasonAnnualUSDBlocked      = "ANNUAL_USD_BLOCKED"
	ReasonEngineWarnings        = "ENGINE_WARNINGS_PRESENT"
)

// Input is everything the policy reads. HasRatchetHistory is nil when
// unknown; only an explicit false blocks demand claims.
type Input struct {
	VerifierStatus        verdict.CheckStatus            `json:"verifierStatus"`
	RequiredInputsMissing []string                       `json:"requiredInputsMissing,omitempty"`
	MissingInfo           []domainClaims.MissingInfoItem `json:"missingInfo,omitempty"`
	HasRatchetHistory     *bool                          `json:"hasRatchetHistory,omitempty"`
	TariffMatch           verdict.TariffMatchStatus      `json:"tariffMatch"`
	EngineWarnings        []string                       `json:"engineWarnings,omitempty"`
}

// Options caps the policy lists.
type Options struct {
	MaxBlockedReasons   int
	MaxRequiredNextData int
}

// DefaultOptions returns the documented caps.
func DefaultOptions() Options {
	return Options{
		MaxBlockedReasons:   DefaultMaxBlockedReasons,
		MaxRequiredNextData: DefaultMaxRequiredNextData,
	}
}

// Validate rejects caps that leave no room for the engine-warning summary.
func (o Options) Validate() error {
	if o.MaxBlockedReasons < 2 {
		return fmt.Errorf("claims.max_blocked_reasons must be at least 2")
	}
	if o.MaxRequiredNextData < 1 {
		return fmt.Errorf("claims.max_required_next_data must be at least 1")
	}
	return nil
}

type rule struct {
	name  string
	apply func(in Input, p *evaluation)
}

type evaluation struct {
	allowed  domainClaims.AllowedClaims
	reasons  []string
	verifier bool
}

func (e *evaluation) block(reason string, keys ...domainClaims.Key) {
	for _, k := range keys {
		e.allowed.Block(k)
	}
	e.reasons = append(e.reasons, reason)
}

// rules run in this order; each one can only clear flags.
var rules = []rule{
	{"verifier", func(in Input, e *evaluation) {
		if in.VerifierStatus == verdict.StatusFail {
			e.verifier = true
			e.block(ReasonVerifierFail, domainClaims.Keys()...)
		}
	}},
	{"required_inputs", func(in Input, e *evaluation) {
		if len(bounded.Strings(in.RequiredInputsMissing, len(in.RequiredInputsMissing))) > 0 {
			e.block(ReasonRequiredInputsMissing, domainClaims.AnnualUSDSavings, domainClaims.DemandSavings)
		}
		for _, item := range in.MissingInfo {
			if item.Severity.Blocks() {
				reason := ReasonRequiredMissingInfo
				if id := strings.TrimSpace(item.ID); id != "" {
					reason += ":" + id
				}
				e.block(reason, domainClaims.AnnualUSDSavings, domainClaims.DemandSavings)
			}
		}
	}},
	{"ratchet", func(in Input, e *evaluation) {
		if in.HasRatchetHistory != nil && !*in.HasRatchetHistory {
			e.block(ReasonNoRatchetHistory, domainClaims.DemandSavings)
		}
	}},
	{"tariff", func(in Input, e *evaluation) {
		if status := verdict.ParseTariffMatchStatus(string(in.TariffMatch)); status.Unresolved() {
			e.block(ReasonTariffUnresolved+":"+string(status), domainClaims.TariffSwitchRecommendation)
		}
	}},
	{"battery_sizing", func(_ Input, e *evaluation) {
		if !e.allowed.AnnualUSDSavings && e.allowed.BatterySizingRecommendation {
			e.block(ReasonAnnualUSDBlocked, domainClaims.BatterySizingRecommendation)
		}
	}},
}

// Evaluate applies the rule chain to in.
func Evaluate(in Input, opts Options) (domainClaims.Policy, error) {
	if err := opts.Validate(); err != nil {
		return domainClaims.Policy{}, err
	}
	e := &evaluation{allowed: domainClaims.AllowAll()}
	for _, r := range rules {
		before := len(e.reasons)
		r.apply(in, e)
		if len(e.reasons) > before {
			internal.DefaultLogger.With("claims").Trace("rule %s blocked %v", r.name, e.reasons[before:])
		}
	}

	status := domainClaims.StatusLimited
	switch {
	case e.verifier:
		status = domainClaims.StatusBlock
	case len(e.allowed.Blocked()) == 0:
		status = domainClaims.StatusAllow
	}

	reasons := bounded.Strings(e.reasons, opts.MaxBlockedReasons-1)
	if warnings := bounded.Strings(in.EngineWarnings, len(in.EngineWarnings)); len(warnings) > 0 {
		reasons = append(reasons, fmt.Sprintf("%s:%d", ReasonEngineWarnings, len(warnings)))
	}

	var next []string
	next = append(next, in.RequiredInputsMissing...)
	for _, item := range in.MissingInfo {
		if item.Severity.Blocks() {
			next = append(next, item.ID)
		}
	}

	return domainClaims.Policy{
		Status:           status,
		BlockedReasons:   reasons,
		AllowedClaims:    e.allowed,
		RequiredNextData: bounded.Strings(next, opts.MaxRequiredNextData),
	}, nil
}
