package truth

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"gridtruth/domain/core"
	"gridtruth/domain/energy"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

// Warning tags emitted by the baseline builder.
const (
	WarnMissingWeatherDaily     = "missing_weather_daily"
	WarnInsufficientWeatherDays = "insufficient_weather_days"
	WarnRegressionHourFallback  = "regression_hour_fallback"
	WarnSeasonalBackoff         = "seasonal_profile_backoff"
	WarnBillsOnlyBaseline       = "bills_only_baseline"
	WarnNoBaselineData          = "no_baseline_data"
)

// singularDet is the determinant magnitude below which the normal equations
// are treated as singular.
const singularDet = 1e-9

// flatVariance is the observed sum of squares under which R2 is defined as 1.
const flatVariance = 1e-9

// BaselineInput is everything the model builder may draw on.
type BaselineInput struct {
	Observations []domainTruth.HourlyObservation
	Weather      map[string]domainTruth.DegreeDays
	Bills        []energy.BillRow
}

// BuildBaseline picks and fits one of the four model kinds in priority order:
// weather regression, seasonal profile, bills-only, none.
func BuildBaseline(in BaselineInput, opts Options) (domainTruth.BaselineModel, []string) {
	var warnings []string
	days := len(distinctDates(in.Observations))

	if len(in.Observations) > 0 {
		matched := matchedWeatherDays(in.Observations, in.Weather)
		if matched >= opts.MinWeatherDays {
			model, fellBack := fitWeatherRegression(in.Observations, in.Weather, opts)
			if fellBack {
				warnings = append(warnings, WarnRegressionHourFallback)
			}
			model.Fit = fitQuality(&model, in.Observations, days, opts)
			return model, warnings
		}
		if len(in.Weather) == 0 {
			warnings = append(warnings, WarnMissingWeatherDaily)
		} else {
			warnings = append(warnings, WarnInsufficientWeatherDays)
		}
		model, backedOff := buildSeasonalProfile(in.Observations, opts)
		if backedOff {
			warnings = append(warnings, WarnSeasonalBackoff)
		}
		model.Fit = fitQuality(&model, in.Observations, days, opts)
		return model, warnings
	}

	if len(in.Bills) > 0 {
		if model, ok := buildBillsMonthly(in.Bills, opts); ok {
			model.Fit = domainTruth.FitQuality{Tier: domainTruth.TierC}
			return model, append(warnings, WarnBillsOnlyBaseline)
		}
	}

	return domainTruth.BaselineModel{
		Kind: domainTruth.ModelNone,
		Fit:  domainTruth.FitQuality{Tier: domainTruth.TierC},
	}, append(warnings, WarnNoBaselineData)
}

func matchedWeatherDays(obs []domainTruth.HourlyObservation, weather map[string]domainTruth.DegreeDays) int {
	n := 0
	for _, d := range distinctDates(obs) {
		if _, ok := weather[d]; ok {
			n++
		}
	}
	return n
}

// fitWeatherRegression solves y = b0 + b1*HDD + b2*CDD independently for each
// hour. Hours with too few samples or singular normal equations keep their
// observed mean instead.
func fitWeatherRegression(obs []domainTruth.HourlyObservation, weather map[string]domainTruth.DegreeDays, opts Options) (domainTruth.BaselineModel, bool) {
	var byHour, allByHour [24][]domainTruth.HourlyObservation
	var all []float64
	for _, o := range obs {
		allByHour[o.Hour] = append(allByHour[o.Hour], o)
		all = append(all, o.ObservedKW)
		if _, ok := weather[o.Date]; ok {
			byHour[o.Hour] = append(byHour[o.Hour], o)
		}
	}
	globalMean := numeric.Mean(all)

	reg := &domainTruth.WeatherRegression{
		BaseTempF: opts.BaseTempF,
		Weather:   make(map[string]domainTruth.DegreeDays, len(weather)),
	}
	for date, dd := range weather {
		reg.Weather[date] = dd
	}

	fellBack := false
	for h := 0; h < 24; h++ {
		samples := byHour[h]
		coef, ok := solveHour(samples, weather, opts.MinHourSamples)
		if !ok {
			fellBack = true
			coef = domainTruth.HourCoefficients{
				Intercept:   hourMean(samples, allByHour[h], globalMean),
				SampleCount: len(samples),
				Fallback:    true,
			}
		}
		coef.Hour = h
		reg.Hours[h] = coef
	}
	return domainTruth.BaselineModel{Kind: domainTruth.ModelWeatherRegression, WeatherRegression: reg}, fellBack
}

func solveHour(samples []domainTruth.HourlyObservation, weather map[string]domainTruth.DegreeDays, minSamples int) (domainTruth.HourCoefficients, bool) {
	if len(samples) < minSamples {
		return domainTruth.HourCoefficients{}, false
	}
	xtx := make([]float64, 9)
	xty := make([]float64, 3)
	for _, o := range samples {
		dd := weather[o.Date]
		row := [3]float64{1, dd.HDD, dd.CDD}
		for i := 0; i < 3; i++ {
			xty[i] += row[i] * o.ObservedKW
			for j := 0; j < 3; j++ {
				xtx[i*3+j] += row[i] * row[j]
			}
		}
	}
	a := mat.NewDense(3, 3, xtx)
	if math.Abs(mat.Det(a)) < singularDet {
		return domainTruth.HourCoefficients{}, false
	}
	var beta mat.VecDense
	if err := beta.SolveVec(a, mat.NewVecDense(3, xty)); err != nil {
		return domainTruth.HourCoefficients{}, false
	}
	for i := 0; i < 3; i++ {
		if v := beta.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return domainTruth.HourCoefficients{}, false
		}
	}
	return domainTruth.HourCoefficients{
		Intercept:    beta.AtVec(0),
		HeatingSlope: beta.AtVec(1),
		CoolingSlope: beta.AtVec(2),
		SampleCount:  len(samples),
	}, true
}

func hourMean(primary, secondary []domainTruth.HourlyObservation, fallback float64) float64 {
	for _, set := range [][]domainTruth.HourlyObservation{primary, secondary} {
		if len(set) == 0 {
			continue
		}
		vals := make([]float64, len(set))
		for i, o := range set {
			vals[i] = o.ObservedKW
		}
		return numeric.Mean(vals)
	}
	return fallback
}

type bucketAcc struct {
	sum float64
	n   int
}

// buildSeasonalProfile builds the (month, day type, hour) profile with its
// (month, hour) and hour-of-day backoff levels.
func buildSeasonalProfile(obs []domainTruth.HourlyObservation, opts Options) (domainTruth.BaselineModel, bool) {
	level1 := make(map[domainTruth.ProfileBucket]*bucketAcc)
	level2 := make(map[domainTruth.ProfileBucket]*bucketAcc)
	level3 := make(map[domainTruth.ProfileBucket]*bucketAcc)
	add := func(m map[domainTruth.ProfileBucket]*bucketAcc, k domainTruth.ProfileBucket, v float64) {
		a, ok := m[k]
		if !ok {
			a = &bucketAcc{}
			m[k] = a
		}
		a.sum += v
		a.n++
	}
	for _, o := range obs {
		dt := domainTruth.Weekday
		if o.IsWeekend() {
			dt = domainTruth.Weekend
		}
		add(level1, domainTruth.ProfileBucket{Month: o.Month, DayType: dt, Hour: o.Hour}, o.ObservedKW)
		add(level2, domainTruth.ProfileBucket{Month: o.Month, DayType: domainTruth.AnyDay, Hour: o.Hour}, o.ObservedKW)
		add(level3, domainTruth.ProfileBucket{Month: 0, DayType: domainTruth.AnyDay, Hour: o.Hour}, o.ObservedKW)
	}

	buckets := finishBuckets(level1, opts.SeasonalMinSamples)
	monthHours := finishBuckets(level2, opts.SeasonalMinSamples)
	hourMeans := finishBuckets(level3, 1)

	full := make(map[domainTruth.ProfileBucket]bool, len(buckets))
	for _, b := range buckets {
		full[domainTruth.ProfileBucket{Month: b.Month, DayType: b.DayType, Hour: b.Hour}] = true
	}
	backedOff := false
	for k := range level1 {
		if !full[k] {
			backedOff = true
			break
		}
	}

	profile := domainTruth.NewSeasonalProfile(opts.SeasonalMinSamples, buckets, monthHours, hourMeans)
	return domainTruth.BaselineModel{Kind: domainTruth.ModelSeasonalProfile, SeasonalProfile: profile}, backedOff
}

func finishBuckets(m map[domainTruth.ProfileBucket]*bucketAcc, minSamples int) []domainTruth.ProfileBucket {
	out := make([]domainTruth.ProfileBucket, 0, len(m))
	for k, a := range m {
		if a.n < minSamples {
			continue
		}
		k.MeanKW = a.sum / float64(a.n)
		k.Samples = a.n
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		if out[i].DayType != out[j].DayType {
			return out[i].DayType < out[j].DayType
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// ValidateBills rejects unparseable months, duplicate months and negative usage.
func ValidateBills(bills []energy.BillRow) error {
	seen := make(map[string]bool, len(bills))
	for i, b := range bills {
		if _, err := b.MonthStart(); err != nil {
			return fmt.Errorf("%w: row %d month %q", core.ErrInvalidBills, i, b.Month)
		}
		if seen[b.Month] {
			return fmt.Errorf("%w: duplicate month %s", core.ErrInvalidBills, b.Month)
		}
		seen[b.Month] = true
		if b.KWh < 0 || math.IsNaN(b.KWh) || math.IsInf(b.KWh, 0) {
			return fmt.Errorf("%w: row %d has invalid kWh", core.ErrInvalidBills, i)
		}
	}
	return nil
}

// buildBillsMonthly averages the trailing months into a flat expected kW.
func buildBillsMonthly(bills []energy.BillRow, opts Options) (domainTruth.BaselineModel, bool) {
	rows := append([]energy.BillRow(nil), bills...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	if len(rows) > opts.BillsTrailingMonths {
		rows = rows[len(rows)-opts.BillsTrailingMonths:]
	}
	var kwh, kw []float64
	for _, r := range rows {
		start, err := r.MonthStart()
		if err != nil {
			continue
		}
		hours := start.AddDate(0, 1, 0).Sub(start) / time.Hour
		kwh = append(kwh, r.KWh)
		kw = append(kw, r.KWh/float64(hours))
	}
	if len(kwh) == 0 {
		return domainTruth.BaselineModel{}, false
	}
	return domainTruth.BaselineModel{
		Kind: domainTruth.ModelBillsMonthly,
		BillsMonthly: &domainTruth.BillsMonthly{
			Months:         len(kwh),
			FirstMonth:     rows[0].Month,
			LastMonth:      rows[len(rows)-1].Month,
			MeanMonthlyKWh: numeric.Mean(kwh),
			ExpectedKW:     numeric.Mean(kw),
		},
	}, true
}

// fitQuality computes R2 over every observation the model can explain and
// grades the fit.
func fitQuality(model *domainTruth.BaselineModel, obs []domainTruth.HourlyObservation, days int, opts Options) domainTruth.FitQuality {
	var observed, expected []float64
	for _, o := range obs {
		if e, ok := model.Expected(o); ok {
			observed = append(observed, o.ObservedKW)
			expected = append(expected, e)
		}
	}
	fq := domainTruth.FitQuality{CoverageDays: days, ResidualSamples: len(observed)}
	if len(observed) > 0 {
		mean := numeric.Mean(observed)
		var ssRes, ssTot float64
		for i := range observed {
			d := observed[i] - expected[i]
			ssRes += d * d
			t := observed[i] - mean
			ssTot += t * t
		}
		r2 := 1.0
		if ssTot > flatVariance {
			r2 = numeric.Clamp01(1 - ssRes/ssTot)
		}
		fq.R2 = &r2
	}
	fq.Tier = fitTier(days, fq.R2, opts)
	return fq
}

func fitTier(days int, r2 *float64, opts Options) domainTruth.Tier {
	meets := func(cut float64) bool { return r2 == nil || *r2 >= cut }
	switch {
	case days >= opts.TierADays && meets(opts.TierAR2):
		return domainTruth.TierA
	case days >= opts.TierBDays && meets(opts.TierBR2):
		return domainTruth.TierB
	default:
		return domainTruth.TierC
	}
}
