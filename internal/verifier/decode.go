package verifier

import (
	"fmt"

	"github.com/tidwall/gjson"

	"gridtruth/domain/core"
	"gridtruth/domain/verdict"
)

// DecodeAnalysis reads a stored analysis artifact into its typed view. Absent
// blocks stay nil; a present field of the wrong JSON type is an error rather
// than a silent default.
func DecodeAnalysis(raw []byte) (verdict.Analysis, error) {
	var a verdict.Analysis
	if !gjson.ValidBytes(raw) {
		return a, fmt.Errorf("%w: analysis is not valid JSON", core.ErrInvalidArtifact)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return a, fmt.Errorf("%w: analysis must be an object", core.ErrInvalidArtifact)
	}
	d := &decoder{}

	if audit := root.Get("audit"); audit.Exists() && audit.Type != gjson.Null {
		d.object("audit", audit)
		a.Audit = &verdict.EconomicsAudit{
			TotalUSD:       d.number("audit.totalUsd", audit.Get("totalUsd")),
			LineItemSumUSD: d.optionalNumber("audit.lineItemSumUsd", audit.Get("lineItemSumUsd")),
		}
		items := audit.Get("lineItems")
		d.optionalArray("audit.lineItems", items)
		if !items.IsArray() {
			items = gjson.Result{}
		}
		items.ForEach(func(k, li gjson.Result) bool {
			path := "audit.lineItems." + k.String()
			d.object(path, li)
			a.Audit.LineItems = append(a.Audit.LineItems, verdict.LineItem{
				ID:        d.str(path+".id", li.Get("id")),
				Kind:      d.str(path+".kind", li.Get("kind")),
				Label:     d.str(path+".label", li.Get("label")),
				AmountUSD: d.number(path+".amountUsd", li.Get("amountUsd")),
				Markers:   d.strings(path+".markers", li.Get("markers")),
			})
			return d.err == nil
		})
	}

	if iv := root.Get("interval"); iv.Exists() && iv.Type != gjson.Null {
		d.object("interval", iv)
		a.Interval = &verdict.IntervalSummary{
			PointCount:         int(d.number("interval.pointCount", iv.Get("pointCount"))),
			GranularityMinutes: int(d.number("interval.granularityMinutes", iv.Get("granularityMinutes"))),
			StartDate:          d.str("interval.startDate", iv.Get("startDate")),
			EndDate:            d.str("interval.endDate", iv.Get("endDate")),
			CoverageDays:       d.number("interval.coverageDays", iv.Get("coverageDays")),
			IntakeWarnings:     d.strings("interval.intakeWarnings", iv.Get("intakeWarnings")),
		}
	}

	if rc := root.Get("rateContext"); rc.Exists() && rc.Type != gjson.Null {
		d.object("rateContext", rc)
		a.RateContext = &verdict.RateContext{
			ProviderType:      d.str("rateContext.providerType", rc.Get("providerType")),
			AddersSnapshotID:  d.optionalString("rateContext.addersSnapshotId", rc.Get("addersSnapshotId")),
			ExitFeeSnapshotID: d.optionalString("rateContext.exitFeeSnapshotId", rc.Get("exitFeeSnapshotId")),
		}
	}

	a.TariffMatch = verdict.ParseTariffMatchStatus(d.str("tariffMatch.status", root.Get("tariffMatch.status")))
	if v := root.Get("tariffDependentEconomics"); v.Exists() {
		if v.Type != gjson.True && v.Type != gjson.False {
			d.fail("tariffDependentEconomics", "boolean")
		}
		a.HasTariffDependentEconomics = v.Bool()
	}

	if d.err != nil {
		return verdict.Analysis{}, d.err
	}
	return a, nil
}

// decoder keeps the first shape error it sees.
type decoder struct {
	err error
}

func (d *decoder) fail(path, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s must be %s", core.ErrInvalidArtifact, path, want)
	}
}

func (d *decoder) object(path string, v gjson.Result) {
	if !v.IsObject() {
		d.fail(path, "an object")
	}
}

func (d *decoder) optionalArray(path string, v gjson.Result) {
	if v.Exists() && v.Type != gjson.Null && !v.IsArray() {
		d.fail(path, "an array")
	}
}

func (d *decoder) number(path string, v gjson.Result) float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return 0
	}
	if v.Type != gjson.Number {
		d.fail(path, "a number")
		return 0
	}
	return v.Float()
}

func (d *decoder) optionalNumber(path string, v gjson.Result) *float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := d.number(path, v)
	return &f
}

func (d *decoder) str(path string, v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	if v.Type != gjson.String {
		d.fail(path, "a string")
		return ""
	}
	return v.String()
}

func (d *decoder) optionalString(path string, v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := d.str(path, v)
	return &s
}

func (d *decoder) strings(path string, v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsArray() {
		d.fail(path, "an array of strings")
		return nil
	}
	var out []string
	for i, s := range v.Array() {
		out = append(out, d.str(fmt.Sprintf("%s.%d", path, i), s))
	}
	return out
}
