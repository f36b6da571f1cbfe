package truth

import (
	"strconv"
)

// ModelKind tags which baseline variant is populated.
type ModelKind string

const (
	ModelWeatherRegression ModelKind = "weather_regression"
	ModelSeasonalProfile   ModelKind = "seasonal_profile"
	ModelBillsMonthly      ModelKind = "bills_monthly"
	ModelNone              ModelKind = "none"
)

// FitQuality grades how well the baseline explains the observed series.
type FitQuality struct {
	R2              *float64 `json:"r2"`
	Tier            Tier     `json:"tier"`
	CoverageDays    int      `json:"coverageDays"`
	ResidualSamples int      `json:"residualSamples"`
}

// BaselineModel is a tagged variant: exactly one payload matching Kind is set.
type BaselineModel struct {
	Kind              ModelKind          `json:"kind"`
	WeatherRegression *WeatherRegression `json:"weatherRegression,omitempty"`
	SeasonalProfile   *SeasonalProfile   `json:"seasonalProfile,omitempty"`
	BillsMonthly      *BillsMonthly      `json:"billsMonthly,omitempty"`
	Fit               FitQuality         `json:"fit"`
}

// Expected returns the modeled kW for an observation, or false when the model
// cannot say anything about it.
func (m *BaselineModel) Expected(o HourlyObservation) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch m.Kind {
	case ModelWeatherRegression:
		return m.WeatherRegression.expected(o)
	case ModelSeasonalProfile:
		return m.SeasonalProfile.expected(o)
	case ModelBillsMonthly:
		return m.BillsMonthly.expected()
	case ModelNone:
		return 0, false
	default:
		return 0, false
	}
}

// DegreeDays is the daily weather driver of the regression.
type DegreeDays struct {
	Date      string  `json:"date"`
	MeanTempF float64 `json:"meanTempF"`
	HDD       float64 `json:"hdd"`
	CDD       float64 `json:"cdd"`
}

// HourCoefficients is one of the 24 independent per-hour fits. Fallback hours
// carry only the observed mean in Intercept.
type HourCoefficients struct {
	Hour         int     `json:"hour"`
	Intercept    float64 `json:"intercept"`
	HeatingSlope float64 `json:"heatingSlope"`
	CoolingSlope float64 `json:"coolingSlope"`
	SampleCount  int     `json:"sampleCount"`
	Fallback     bool    `json:"fallback"`
}

// WeatherRegression fits y = b0 + b1*HDD + b2*CDD per hour of day.
type WeatherRegression struct {
	BaseTempF float64               `json:"baseTempF"`
	Hours     [24]HourCoefficients  `json:"hours"`
	Weather   map[string]DegreeDays `json:"weather"`
}

func (w *WeatherRegression) expected(o HourlyObservation) (float64, bool) {
	if w == nil || o.Hour < 0 || o.Hour > 23 {
		return 0, false
	}
	c := w.Hours[o.Hour]
	if c.Fallback {
		return c.Intercept, true
	}
	dd, ok := w.Weather[o.Date]
	if !ok {
		return 0, false
	}
	return c.Intercept + c.HeatingSlope*dd.HDD + c.CoolingSlope*dd.CDD, true
}

// DayType splits the week for the seasonal profile.
type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
	AnyDay  DayType = "any"
)

// ProfileBucket is a mean kW for one key of the seasonal profile. Month 0
// marks the global hour-of-day level.
type ProfileBucket struct {
	Month   int     `json:"month"`
	DayType DayType `json:"dayType"`
	Hour    int     `json:"hour"`
	MeanKW  float64 `json:"meanKw"`
	Samples int     `json:"samples"`
}

func (b ProfileBucket) key() string {
	return strconv.Itoa(b.Month) + "|" + string(b.DayType) + "|" + strconv.Itoa(b.Hour)
}

// SeasonalProfile looks up (month, day type, hour), backing off to
// (month, any, hour) and then to the global hour mean.
type SeasonalProfile struct {
	MinSamples int             `json:"minSamples"`
	Buckets    []ProfileBucket `json:"buckets"`
	MonthHours []ProfileBucket `json:"monthHours"`
	HourMeans  []ProfileBucket `json:"hourMeans"`

	index map[string]float64
}

// NewSeasonalProfile indexes the three backoff levels. Slices are expected in
// canonical order and are not copied.
func NewSeasonalProfile(minSamples int, buckets, monthHours, hourMeans []ProfileBucket) *SeasonalProfile {
	p := &SeasonalProfile{
		MinSamples: minSamples,
		Buckets:    buckets,
		MonthHours: monthHours,
		HourMeans:  hourMeans,
		index:      make(map[string]float64, len(buckets)+len(monthHours)+len(hourMeans)),
	}
	for _, level := range [][]ProfileBucket{buckets, monthHours, hourMeans} {
		for _, b := range level {
			p.index[b.key()] = b.MeanKW
		}
	}
	return p
}

func (p *SeasonalProfile) expected(o HourlyObservation) (float64, bool) {
	if p == nil {
		return 0, false
	}
	dayType := Weekday
	if o.IsWeekend() {
		dayType = Weekend
	}
	for _, k := range []ProfileBucket{
		{Month: o.Month, DayType: dayType, Hour: o.Hour},
		{Month: o.Month, DayType: AnyDay, Hour: o.Hour},
		{Month: 0, DayType: AnyDay, Hour: o.Hour},
	} {
		if v, ok := p.index[k.key()]; ok {
			return v, true
		}
	}
	return 0, false
}

// BillsMonthly is a flat expectation from the trailing monthly bill mean.
type BillsMonthly struct {
	Months         int     `json:"months"`
	FirstMonth     string  `json:"firstMonth"`
	LastMonth      string  `json:"lastMonth"`
	MeanMonthlyKWh float64 `json:"meanMonthlyKwh"`
	ExpectedKW     float64 `json:"expectedKw"`
}

func (b *BillsMonthly) expected() (float64, bool) {
	if b == nil || b.Months == 0 {
		return 0, false
	}
	return b.ExpectedKW, true
}
