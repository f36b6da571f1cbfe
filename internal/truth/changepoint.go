package truth

import (
	"fmt"
	"math"
	"sort"
	"time"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

// Daily metric thresholds: a shift must exceed max(floor, relative*|prior mean|).
const (
	baseloadRelative    = 0.15
	baseloadFloorKW     = 0.5
	peakRelative        = 0.15
	peakFloorKW         = 1.0
	scheduleRelative    = 0.20
	scheduleFloorHours  = 2.0
	sensitivityRelative = 0.25
	sensitivityFloor    = 0.05

	// Days whose peak-baseload spread is below both limits have no distinct
	// operating schedule and count zero operating hours.
	flatDayRangeKW       = 0.25
	flatDayRangeRelative = 0.05

	operatingFraction     = 0.40
	minSensitivityDegrees = 2.0
)

// DailyProfile summarizes one local calendar day.
type DailyProfile struct {
	Date           string
	Start          time.Time
	Hours          int
	BaseloadKW     float64
	PeakKW         float64
	MeanKW         float64
	OperatingHours float64
	DegreeDays     float64
	HasWeather     bool
}

// BuildDailyProfiles computes baseload (p10), peak (p90) and operating hours
// for every day with at least minHours hourly bins, in date order.
func BuildDailyProfiles(obs []domainTruth.HourlyObservation, weather map[string]domainTruth.DegreeDays, minHours int) []DailyProfile {
	byDate := make(map[string][]domainTruth.HourlyObservation)
	for _, o := range obs {
		byDate[o.Date] = append(byDate[o.Date], o)
	}
	out := make([]DailyProfile, 0, len(byDate))
	for _, date := range distinctDates(obs) {
		day := byDate[date]
		if len(day) < minHours {
			continue
		}
		vals := make([]float64, len(day))
		start := day[0].Timestamp
		for i, o := range day {
			vals[i] = o.ObservedKW
			if o.Timestamp.Before(start) {
				start = o.Timestamp
			}
		}
		base := numeric.Quantile(vals, 0.10)
		peak := numeric.Quantile(vals, 0.90)
		p := DailyProfile{
			Date:       date,
			Start:      start,
			Hours:      len(day),
			BaseloadKW: base,
			PeakKW:     peak,
			MeanKW:     numeric.Mean(vals),
		}
		spread := peak - base
		if spread >= flatDayRangeKW || spread >= flatDayRangeRelative*math.Abs(peak) {
			cut := base + operatingFraction*spread
			for _, v := range vals {
				if v >= cut {
					p.OperatingHours++
				}
			}
		}
		if dd, ok := weather[date]; ok {
			p.HasWeather = true
			p.DegreeDays = dd.HDD + dd.CDD
		}
		out = append(out, p)
	}
	return out
}

type metricSeries struct {
	kind     domainTruth.ChangepointType
	label    string
	unit     string
	relative float64
	floor    float64
	days     []DailyProfile
	values   []float64
}

// DetectChangepoints slides a window over each daily metric and emits shifts
// that both exceed the metric threshold and persist for a following
// half-window. After a detection the scan jumps a full window ahead.
func DetectChangepoints(days []DailyProfile, opts Options) []domainTruth.Changepoint {
	series := []metricSeries{
		{kind: domainTruth.BaseloadShift, label: "baseload", unit: "kW", relative: baseloadRelative, floor: baseloadFloorKW},
		{kind: domainTruth.PeakShift, label: "peak", unit: "kW", relative: peakRelative, floor: peakFloorKW},
		{kind: domainTruth.ScheduleShift, label: "operating hours", unit: "h", relative: scheduleRelative, floor: scheduleFloorHours},
		{kind: domainTruth.WeatherSensitivityShift, label: "kW per degree-day", unit: "kW/DD", relative: sensitivityRelative, floor: sensitivityFloor},
	}
	for _, d := range days {
		series[0].append(d, d.BaseloadKW)
		series[1].append(d, d.PeakKW)
		series[2].append(d, d.OperatingHours)
		if d.HasWeather && d.DegreeDays >= minSensitivityDegrees {
			series[3].append(d, d.MeanKW/d.DegreeDays)
		}
	}

	out := make([]domainTruth.Changepoint, 0)
	for _, s := range series {
		out = append(out, s.detect(opts.ChangepointWindowDays)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > opts.MaxChangepoints {
		out = out[:opts.MaxChangepoints]
	}
	return out
}

func (s *metricSeries) append(d DailyProfile, v float64) {
	s.days = append(s.days, d)
	s.values = append(s.values, v)
}

func (s *metricSeries) detect(window int) []domainTruth.Changepoint {
	var out []domainTruth.Changepoint
	half := (window + 1) / 2
	n := len(s.values)
	for i := window; i+window+half <= n; {
		prior := numeric.Mean(s.values[i-window : i])
		next := numeric.Mean(s.values[i : i+window])
		delta := next - prior
		threshold := math.Max(s.floor, s.relative*math.Abs(prior))
		if math.Abs(delta) > threshold {
			follow := numeric.Mean(s.values[i+window : i+window+half])
			if math.Abs(follow-next) <= threshold {
				out = append(out, domainTruth.Changepoint{
					Timestamp:  s.days[i].Start,
					Date:       s.days[i].Date,
					Type:       s.kind,
					Magnitude:  numeric.Round(delta, numeric.KWPlaces),
					Confidence: numeric.Round(numeric.Clamp01(math.Abs(delta)/(2*threshold)), numeric.ConfidencePlaces),
					Notes: fmt.Sprintf("%s moved from %.2f to %.2f %s (threshold %.2f)",
						s.label, prior, next, s.unit, threshold),
				})
				i += window
				continue
			}
		}
		i++
	}
	return out
}
