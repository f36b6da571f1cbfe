package truth

import (
	"fmt"
	"math"
	"sort"
	"time"
	_ "time/tzdata" // series timezones must resolve identically on every host

	"gridtruth/domain/core"
	"gridtruth/domain/energy"
	domainTruth "gridtruth/domain/truth"
)

type hourKey struct {
	date string
	hour int
}

type hourAccumulator struct {
	start   time.Time
	month   int
	dow     int
	sumKW   float64
	n       int
	sumTemp float64
	nTemp   int
}

// LoadLocation resolves the series timezone; an empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// ValidateSeries fails fast on shapes that cannot be aggregated.
func ValidateSeries(series *energy.IntervalSeries) error {
	if series == nil {
		return nil
	}
	if len(series.Points) > 0 && series.GranularityMinutes <= 0 {
		return fmt.Errorf("%w: granularity must be positive, got %d", core.ErrInvalidSeries, series.GranularityMinutes)
	}
	for i, p := range series.Points {
		if p.Timestamp.IsZero() {
			return fmt.Errorf("%w: point %d has no timestamp", core.ErrInvalidSeries, i)
		}
		if math.IsNaN(p.KW) || math.IsInf(p.KW, 0) {
			return fmt.Errorf("%w: point %d has non-finite kW", core.ErrInvalidSeries, i)
		}
		if p.TempF != nil && (math.IsNaN(*p.TempF) || math.IsInf(*p.TempF, 0)) {
			return fmt.Errorf("%w: point %d has non-finite temperature", core.ErrInvalidSeries, i)
		}
	}
	_, err := LoadLocation(series.Timezone)
	return err
}

// AggregateHourly bins raw points into one observation per local calendar
// date and hour, averaging every point that shares a bin.
func AggregateHourly(series *energy.IntervalSeries) ([]domainTruth.HourlyObservation, error) {
	if series.IsEmpty() {
		return []domainTruth.HourlyObservation{}, nil
	}
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}
	loc, err := LoadLocation(series.Timezone)
	if err != nil {
		return nil, err
	}

	bins := make(map[hourKey]*hourAccumulator)
	for _, p := range series.Points {
		local := p.Timestamp.In(loc)
		y, m, d := local.Date()
		k := hourKey{date: local.Format("2006-01-02"), hour: local.Hour()}
		acc, ok := bins[k]
		if !ok {
			acc = &hourAccumulator{
				start: time.Date(y, m, d, local.Hour(), 0, 0, 0, loc).UTC(),
				month: int(m),
				dow:   int(local.Weekday()),
			}
			bins[k] = acc
		}
		acc.sumKW += p.KW
		acc.n++
		if p.TempF != nil {
			acc.sumTemp += *p.TempF
			acc.nTemp++
		}
	}

	out := make([]domainTruth.HourlyObservation, 0, len(bins))
	for k, acc := range bins {
		obs := domainTruth.HourlyObservation{
			Timestamp:  acc.start,
			Date:       k.date,
			Month:      acc.month,
			DayOfWeek:  acc.dow,
			Hour:       k.hour,
			ObservedKW: acc.sumKW / float64(acc.n),
			Samples:    acc.n,
		}
		if acc.nTemp > 0 {
			t := acc.sumTemp / float64(acc.nTemp)
			obs.TempF = &t
		}
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// DailyDegreeDays derives HDD/CDD per local date from the hourly mean
// temperatures. Dates without any temperature are absent.
func DailyDegreeDays(obs []domainTruth.HourlyObservation, baseTempF float64) map[string]domainTruth.DegreeDays {
	type acc struct {
		sum float64
		n   int
	}
	daily := make(map[string]*acc)
	for _, o := range obs {
		if o.TempF == nil {
			continue
		}
		a, ok := daily[o.Date]
		if !ok {
			a = &acc{}
			daily[o.Date] = a
		}
		a.sum += *o.TempF
		a.n++
	}
	out := make(map[string]domainTruth.DegreeDays, len(daily))
	for date, a := range daily {
		mean := a.sum / float64(a.n)
		out[date] = domainTruth.DegreeDays{
			Date:      date,
			MeanTempF: mean,
			HDD:       math.Max(0, baseTempF-mean),
			CDD:       math.Max(0, mean-baseTempF),
		}
	}
	return out
}

// distinctDates returns the sorted calendar dates present in obs.
func distinctDates(obs []domainTruth.HourlyObservation) []string {
	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, o := range obs {
		if _, ok := seen[o.Date]; ok {
			continue
		}
		seen[o.Date] = struct{}{}
		dates = append(dates, o.Date)
	}
	sort.Strings(dates)
	return dates
}
