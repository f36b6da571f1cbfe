// Package energy holds the normalized input shapes produced by upstream
// interval and bill ingestion.
package energy

import (
	"time"
)

// IntervalPoint is one metered reading. TempF is optional outdoor temperature
// aligned to the reading.
type IntervalPoint struct {
	Timestamp time.Time `json:"timestamp"`
	KW        float64   `json:"kw"`
	TempF     *float64  `json:"tempF,omitempty"`
}

// IntervalSeries is a normalized interval series in a named IANA timezone.
type IntervalSeries struct {
	GranularityMinutes int             `json:"granularityMinutes"`
	Timezone           string          `json:"timezone"`
	Points             []IntervalPoint `json:"points"`
	CoverageDays       float64         `json:"coverageDays,omitempty"`
}

// HasTemperature reports whether any point carries a temperature.
func (s *IntervalSeries) HasTemperature() bool {
	if s == nil {
		return false
	}
	for _, p := range s.Points {
		if p.TempF != nil {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the series has no usable points.
func (s *IntervalSeries) IsEmpty() bool {
	return s == nil || len(s.Points) == 0
}

// BillRow is one monthly billing period. Month is formatted YYYY-MM.
type BillRow struct {
	Month    string   `json:"month"`
	KWh      float64  `json:"kwh"`
	PeakKW   *float64 `json:"peakKw,omitempty"`
	TotalUSD *float64 `json:"totalUsd,omitempty"`
}

// MonthStart parses Month into the first instant of that month in UTC.
func (b BillRow) MonthStart() (time.Time, error) {
	return time.Parse("2006-01", b.Month)
}
