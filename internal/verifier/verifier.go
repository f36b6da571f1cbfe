// Package verifier runs a fixed battery of cross-checks over stored analysis
// artifacts and a generated pack. Each check is an independent function; the
// battery normalizes, sorts and tallies whatever they return.
package verifier

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gridtruth/domain/core"
	"gridtruth/domain/verdict"
	"gridtruth/internal"
	"gridtruth/internal/bounded"
)

// Input is what the checks read. Pack is the generated report/pack JSON; it
// may be nil when no pack has been generated yet.
type Input struct {
	Analysis verdict.Analysis
	Pack     json.RawMessage
	Options  Options
}

// Check inspects the input and returns zero or more results.
type Check func(Input) []verdict.CheckResult

// NamedCheck pairs a check with its code.
type NamedCheck struct {
	Code  verdict.CheckCode
	Check Check
}

// DefaultChecks returns the full battery in code order.
func DefaultChecks() []NamedCheck {
	return []NamedCheck{
		{verdict.CodeEconomicsReconciliation, EconomicsReconciliation},
		{verdict.CodeIntervalSanity, IntervalSanity},
		{verdict.CodeProvenanceHeader, ProvenanceHeader},
		{verdict.CodeRateContextDedup, RateContextDedup},
		{verdict.CodeTariffMatchSanity, TariffMatchSanity},
	}
}

// CheckByCode looks up one check of the default battery.
func CheckByCode(code string) (Check, error) {
	want := verdict.CheckCode(strings.ToUpper(strings.TrimSpace(code)))
	for _, nc := range DefaultChecks() {
		if nc.Code == want {
			return nc.Check, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown verifier check %q", core.ErrInvalidInput, code)
}

// Run executes the checks (the default battery when none are given) and
// returns the sorted, tallied result.
func Run(in Input, checks ...Check) (verdict.Result, error) {
	if in.Options == (Options{}) {
		in.Options = DefaultOptions()
	}
	if err := in.Options.Validate(); err != nil {
		return verdict.Result{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if len(in.Pack) > 0 && !json.Valid(in.Pack) {
		return verdict.Result{}, fmt.Errorf("%w: generated pack is not valid JSON", core.ErrInvalidPack)
	}
	if len(checks) == 0 {
		for _, nc := range DefaultChecks() {
			checks = append(checks, nc.Check)
		}
	}

	var results []verdict.CheckResult
	for _, check := range checks {
		for _, r := range check(in) {
			results = append(results, Normalize(r, in.Options.MaxPaths))
		}
	}
	sortResults(results)

	out := verdict.Result{Checks: results, Overall: verdict.StatusPass}
	if out.Checks == nil {
		out.Checks = []verdict.CheckResult{}
	}
	for _, r := range results {
		switch r.Status {
		case verdict.StatusFail:
			out.Counts.Fail++
		case verdict.StatusWarn:
			out.Counts.Warn++
		default:
			out.Counts.Pass++
		}
	}
	switch {
	case out.Counts.Fail > 0:
		out.Overall = verdict.StatusFail
	case out.Counts.Warn > 0:
		out.Overall = verdict.StatusWarn
	}
	internal.DefaultLogger.With("verifier").Debug("%d checks: %d pass, %d warn, %d fail",
		len(results), out.Counts.Pass, out.Counts.Warn, out.Counts.Fail)
	return out, nil
}

// Normalize enforces the result contract: a code, a known status, a message
// and a bounded sorted path list. Unknown statuses become WARN.
func Normalize(r verdict.CheckResult, maxPaths int) verdict.CheckResult {
	r.Code = verdict.CheckCode(strings.ToUpper(strings.TrimSpace(string(r.Code))))
	if r.Code == "" {
		r.Code = verdict.CodeUnnamed
	}
	status, ok := verdict.ParseCheckStatus(string(r.Status))
	if !ok {
		status = verdict.StatusWarn
	}
	r.Status = status
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		r.Message = fmt.Sprintf("%s: %s", r.Code, strings.ToLower(string(r.Status)))
	}
	if len(r.Paths) > 0 {
		r.Paths = bounded.Strings(r.Paths, maxPaths)
	}
	if len(r.Paths) == 0 {
		r.Paths = nil
	}
	if len(r.Details) == 0 {
		r.Details = nil
	}
	return r
}

func sortResults(results []verdict.CheckResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Status.Severity() != b.Status.Severity() {
			return a.Status.Severity() < b.Status.Severity()
		}
		return a.Message < b.Message
	})
}

func result(code verdict.CheckCode, status verdict.CheckStatus, format string, args ...any) verdict.CheckResult {
	return verdict.CheckResult{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}
