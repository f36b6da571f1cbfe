package scenario

import (
	domainClaims "gridtruth/domain/claims"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
	"gridtruth/internal/bounded"
	"gridtruth/internal/numeric"
)

// Evaluate runs one template and applies the shared gates: claims policy
// (suppresses money or energy figures), verifier failure (recorded, figures
// kept) and output rounding. It also returns the warnings the template raised.
func Evaluate(t Template, ctx Context) (domainScenario.Result, []string) {
	out := t.Evaluate(ctx)
	kpis := roundKPIs(out.KPIs)
	reasons := append([]string(nil), out.BlockedReasons...)

	confidence := ctx.Confidence
	if confidence.Rank() == 0 {
		confidence = domainTruth.TierC
	}
	if out.Status != domainScenario.StatusRan {
		confidence = domainTruth.TierC
	}

	suppressed := false
	if kpis.AnnualUSD != nil && !allowed(ctx.Policy.AllowedClaims, t.USDClaims) {
		kpis.AnnualUSD = nil
		kpis.PaybackYears = nil
		suppressed = true
	}
	if kpis.AnnualKWh != nil && !allowed(ctx.Policy.AllowedClaims, t.KWhClaims) {
		kpis.AnnualKWh = nil
		suppressed = true
	}
	if suppressed {
		reasons = append(reasons, ReasonLimitedByClaims)
		confidence = confidence.Downgrade()
	}
	if ctx.Verifier == verdict.StatusFail {
		reasons = append(reasons, ReasonVerifierFail)
	}
	if out.Downgrade {
		confidence = confidence.Downgrade()
	}

	res := domainScenario.Result{
		ID:         t.ID,
		Title:      t.Title,
		Category:   t.Category,
		Status:     out.Status,
		Confidence: confidence,
		KPIs:       kpis,
		Gating: domainScenario.Gating{
			BlockedReasons:   bounded.Strings(reasons, ctx.Options.MaxGatingItems),
			RequiredNextData: bounded.Strings(out.RequiredNextData, ctx.Options.MaxGatingItems),
		},
		Provenance: domainScenario.Provenance{
			TemplateID:  t.ID,
			CandidateID: out.CandidateID,
			SourcePaths: bounded.Strings(out.SourcePaths, ctx.Options.MaxGatingItems),
		},
	}
	if ctx.Pack != nil {
		res.Provenance.PackID = ctx.Pack.ID
	}
	res.Pros, res.Cons = ProsCons(res, suppressed, ctx.Options.MaxProsCons)
	return res, out.Warnings
}

// allowed reports whether every key is allowed. An empty key list gates
// nothing.
func allowed(claims domainClaims.AllowedClaims, keys []domainClaims.Key) bool {
	for _, k := range keys {
		if !claims.Allowed(k) {
			return false
		}
	}
	return true
}

func roundKPIs(k domainScenario.KPIs) domainScenario.KPIs {
	return domainScenario.KPIs{
		AnnualUSD:       numeric.RoundPtr(k.AnnualUSD, numeric.USDPlaces),
		AnnualKWh:       numeric.RoundPtr(k.AnnualKWh, numeric.KWPlaces),
		PeakKWReduction: numeric.RoundPtr(k.PeakKWReduction, numeric.KWPlaces),
		CapexUSD:        numeric.RoundPtr(k.CapexUSD, numeric.USDPlaces),
		PaybackYears:    numeric.RoundPtr(k.PaybackYears, numeric.USDPlaces),
	}
}
