package testkit

import (
	"math"
	"math/rand"
	"time"

	"gridtruth/domain/energy"
)

// Spike injects a flat offset into a block of hours.
type Spike struct {
	Day   int
	Hour  int
	Hours int
	KW    float64
}

// LoadConfig configures the synthetic interval generator
type LoadConfig struct {
	Start       time.Time
	Days        int
	StepMinutes int
	Timezone    string

	BaseKW       float64
	OccupiedKW   float64
	OccupiedFrom int
	OccupiedTo   int
	// WeekendOccupiedFromDay is the first day index whose weekends follow the
	// weekday schedule; negative means weekends are never occupied.
	WeekendOccupiedFromDay int
	DriftKWPerDay          float64

	WithTemperature    bool
	TempMeanF          float64
	TempAmplitudeF     float64
	TempPeriodDays     float64
	CoolingKWPerDegree float64
	HeatingKWPerDegree float64

	NoiseKW float64
	Seed    int64
	Spikes  []Spike
}

// DefaultLoadConfig returns a small office: 5 kW base, 15 kW occupied 08-18
// on weekdays, no weather, no noise. Day 0 is Monday 2024-01-01.
func DefaultLoadConfig() LoadConfig {
	return LoadConfig{
		Start:                  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:                   35,
		StepMinutes:            60,
		Timezone:               "UTC",
		BaseKW:                 5,
		OccupiedKW:             10,
		OccupiedFrom:           8,
		OccupiedTo:             18,
		WeekendOccupiedFromDay: -1,
		TempMeanF:              65,
		TempAmplitudeF:         15,
		TempPeriodDays:         14,
		Seed:                   42,
	}
}

// DailyTempF is the daily mean temperature of the sinusoid for a day index.
func (c LoadConfig) DailyTempF(day int) float64 {
	if c.TempPeriodDays <= 0 {
		return c.TempMeanF
	}
	return c.TempMeanF + c.TempAmplitudeF*math.Sin(2*math.Pi*float64(day)/c.TempPeriodDays)
}

// GenerateSeries produces a deterministic interval series for the config.
func GenerateSeries(c LoadConfig) *energy.IntervalSeries {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	rng := rand.New(rand.NewSource(c.Seed))
	step := time.Duration(c.StepMinutes) * time.Minute
	perDay := 24 * 60 / c.StepMinutes

	start := time.Date(c.Start.Year(), c.Start.Month(), c.Start.Day(), 0, 0, 0, 0, loc)
	points := make([]energy.IntervalPoint, 0, c.Days*perDay)
	for day := 0; day < c.Days; day++ {
		dayStart := start.AddDate(0, 0, day)
		dailyTemp := c.DailyTempF(day)
		for i := 0; i < perDay; i++ {
			ts := dayStart.Add(time.Duration(i) * step)
			kw := c.loadAt(day, ts, dailyTemp)
			if c.NoiseKW > 0 {
				kw += rng.NormFloat64() * c.NoiseKW
			}
			p := energy.IntervalPoint{Timestamp: ts.UTC(), KW: kw}
			if c.WithTemperature {
				diurnal := 5 * math.Sin(2*math.Pi*(float64(ts.Hour())-9)/24)
				t := dailyTemp + diurnal
				p.TempF = &t
			}
			points = append(points, p)
		}
	}
	return &energy.IntervalSeries{
		GranularityMinutes: c.StepMinutes,
		Timezone:           c.Timezone,
		Points:             points,
		CoverageDays:       float64(c.Days),
	}
}

func (c LoadConfig) loadAt(day int, ts time.Time, dailyTemp float64) float64 {
	kw := c.BaseKW + c.DriftKWPerDay*float64(day)
	weekend := ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday
	occupiedDay := !weekend || (c.WeekendOccupiedFromDay >= 0 && day >= c.WeekendOccupiedFromDay)
	if occupiedDay && ts.Hour() >= c.OccupiedFrom && ts.Hour() < c.OccupiedTo {
		kw += c.OccupiedKW
	}
	if c.WithTemperature {
		kw += c.CoolingKWPerDegree * math.Max(0, dailyTemp-65)
		kw += c.HeatingKWPerDegree * math.Max(0, 65-dailyTemp)
	}
	for _, s := range c.Spikes {
		if s.Day == day && ts.Hour() >= s.Hour && ts.Hour() < s.Hour+s.Hours {
			kw += s.KW
		}
	}
	return kw
}

// WithoutTemperature strips temperatures from a copy of the series.
func WithoutTemperature(s *energy.IntervalSeries) *energy.IntervalSeries {
	out := *s
	out.Points = make([]energy.IntervalPoint, len(s.Points))
	for i, p := range s.Points {
		p.TempF = nil
		out.Points[i] = p
	}
	return &out
}
