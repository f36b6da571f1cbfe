package truth

import (
	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

// roundBaseline returns a copy of the model with every emitted number rounded.
// Residuals and downstream detectors always work on the unrounded model.
func roundBaseline(m domainTruth.BaselineModel) domainTruth.BaselineModel {
	out := m
	out.Fit.R2 = numeric.RoundPtr(m.Fit.R2, numeric.RatioPlaces)

	switch m.Kind {
	case domainTruth.ModelWeatherRegression:
		reg := *m.WeatherRegression
		for h := range reg.Hours {
			c := reg.Hours[h]
			c.Intercept = numeric.Round(c.Intercept, numeric.KWPlaces)
			c.HeatingSlope = numeric.Round(c.HeatingSlope, numeric.RatioPlaces)
			c.CoolingSlope = numeric.Round(c.CoolingSlope, numeric.RatioPlaces)
			reg.Hours[h] = c
		}
		reg.Weather = make(map[string]domainTruth.DegreeDays, len(m.WeatherRegression.Weather))
		for date, dd := range m.WeatherRegression.Weather {
			reg.Weather[date] = domainTruth.DegreeDays{
				Date:      dd.Date,
				MeanTempF: numeric.Round(dd.MeanTempF, 2),
				HDD:       numeric.Round(dd.HDD, 2),
				CDD:       numeric.Round(dd.CDD, 2),
			}
		}
		out.WeatherRegression = &reg
	case domainTruth.ModelSeasonalProfile:
		p := m.SeasonalProfile
		out.SeasonalProfile = domainTruth.NewSeasonalProfile(p.MinSamples,
			roundBuckets(p.Buckets), roundBuckets(p.MonthHours), roundBuckets(p.HourMeans))
	case domainTruth.ModelBillsMonthly:
		b := *m.BillsMonthly
		b.MeanMonthlyKWh = numeric.Round(b.MeanMonthlyKWh, numeric.KWPlaces)
		b.ExpectedKW = numeric.Round(b.ExpectedKW, numeric.KWPlaces)
		out.BillsMonthly = &b
	case domainTruth.ModelNone:
	}
	return out
}

func roundBuckets(in []domainTruth.ProfileBucket) []domainTruth.ProfileBucket {
	out := make([]domainTruth.ProfileBucket, len(in))
	for i, b := range in {
		b.MeanKW = numeric.Round(b.MeanKW, numeric.KWPlaces)
		out[i] = b
	}
	return out
}
