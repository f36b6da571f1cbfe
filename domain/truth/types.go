// Package truth defines the artifacts of the truth layer: the fitted baseline,
// residual map, changepoints, anomaly ledger and the snapshot that carries them.
package truth

import (
	"time"

	"gridtruth/domain/core"
)

// SchemaVersion identifies the snapshot layout.
const SchemaVersion = "truth-snapshot/v1"

// Tier is a coarse confidence grade.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Rank orders tiers so that a better tier ranks higher.
func (t Tier) Rank() int {
	switch t {
	case TierA:
		return 3
	case TierB:
		return 2
	case TierC:
		return 1
	default:
		return 0
	}
}

// Downgrade returns the next lower tier; C stays C.
func (t Tier) Downgrade() Tier {
	switch t {
	case TierA:
		return TierB
	default:
		return TierC
	}
}

// HourlyObservation is the mean of all raw points sharing one local hour bin.
type HourlyObservation struct {
	Timestamp  time.Time `json:"timestamp"`
	Date       string    `json:"date"`
	Month      int       `json:"month"`
	DayOfWeek  int       `json:"dayOfWeek"`
	Hour       int       `json:"hour"`
	ObservedKW float64   `json:"observedKw"`
	TempF      *float64  `json:"tempF,omitempty"`
	Samples    int       `json:"samples"`
}

// IsWeekend reports whether the observation falls on Saturday or Sunday.
func (o HourlyObservation) IsWeekend() bool {
	return o.DayOfWeek == int(time.Saturday) || o.DayOfWeek == int(time.Sunday)
}

// Coverage summarizes what the truth layer had to work with.
type Coverage struct {
	PointCount         int    `json:"pointCount"`
	HourlyBins         int    `json:"hourlyBins"`
	IntervalDays       int    `json:"intervalDays"`
	WeatherDays        int    `json:"weatherDays"`
	BillMonths         int    `json:"billMonths"`
	StartDate          string `json:"startDate,omitempty"`
	EndDate            string `json:"endDate,omitempty"`
	GranularityMinutes int    `json:"granularityMinutes"`
	Timezone           string `json:"timezone,omitempty"`
	HasBillText        bool   `json:"hasBillText"`
}

// HasInterval reports whether any hourly bin was built.
func (c Coverage) HasInterval() bool {
	return c.HourlyBins > 0
}

// ResidualCell is one (day-of-week, hour) cell of the residual grid.
type ResidualCell struct {
	DayOfWeek      int     `json:"dayOfWeek"`
	Hour           int     `json:"hour"`
	MeanResidualKW float64 `json:"meanResidualKw"`
	Samples        int     `json:"samples"`
}

// ResidualMap is the 7x24 mean residual grid plus its ranked peak cells.
type ResidualMap struct {
	MeanKW    [7][24]float64 `json:"meanKw"`
	Counts    [7][24]int     `json:"counts"`
	PeakCells []ResidualCell `json:"peakCells"`
}

// ChangepointType names the daily metric that shifted.
type ChangepointType string

const (
	BaseloadShift           ChangepointType = "baseload_shift"
	PeakShift               ChangepointType = "peak_shift"
	ScheduleShift           ChangepointType = "schedule_shift"
	WeatherSensitivityShift ChangepointType = "weather_sensitivity_shift"
)

// Changepoint is a sustained, persistent shift in a daily metric.
type Changepoint struct {
	Timestamp  time.Time       `json:"timestamp"`
	Date       string          `json:"date"`
	Type       ChangepointType `json:"type"`
	Magnitude  float64         `json:"magnitude"`
	Confidence float64         `json:"confidence"`
	Notes      string          `json:"notes"`
}

// AnomalyClass is the kind of ledger entry.
type AnomalyClass string

const (
	AnomalySpike      AnomalyClass = "spike"
	AnomalyDrop       AnomalyClass = "drop"
	AnomalyDrift      AnomalyClass = "drift"
	AnomalyVolatility AnomalyClass = "volatility"
	AnomalySchedule   AnomalyClass = "schedule"
)

// Rank is the fixed tie-break order of the ledger (lower sorts first).
func (c AnomalyClass) Rank() int {
	switch c {
	case AnomalyDrift:
		return 0
	case AnomalySpike:
		return 1
	case AnomalyDrop:
		return 2
	case AnomalySchedule:
		return 3
	case AnomalyVolatility:
		return 4
	default:
		return 5
	}
}

// AnomalyLedgerItem is one detected anomaly window.
type AnomalyLedgerItem struct {
	ID               string       `json:"id"`
	WindowStart      time.Time    `json:"windowStart"`
	WindowEnd        time.Time    `json:"windowEnd"`
	Class            AnomalyClass `json:"class"`
	MagnitudeKW      float64      `json:"magnitudeKw"`
	Confidence       float64      `json:"confidence"`
	LikelyDrivers    []string     `json:"likelyDrivers"`
	RequiredNextData []string     `json:"requiredNextData"`
}

// ConfidenceTier is the overall grade of a snapshot with its reasons.
type ConfidenceTier struct {
	Tier    Tier     `json:"tier"`
	Reasons []string `json:"reasons"`
}

// Snapshot is the immutable, versioned output of the truth engine.
type Snapshot struct {
	SchemaVersion string              `json:"schemaVersion"`
	SnapshotID    core.SnapshotID     `json:"snapshotId"`
	RunID         core.RunID          `json:"runId"`
	RevisionID    core.RevisionID     `json:"revisionId"`
	GeneratedAt   core.Timestamp      `json:"generatedAt"`
	Coverage      Coverage            `json:"coverage"`
	Baseline      BaselineModel       `json:"baseline"`
	ResidualMap   ResidualMap         `json:"residualMap"`
	Changepoints  []Changepoint       `json:"changepoints"`
	Anomalies     []AnomalyLedgerItem `json:"anomalies"`
	Confidence    ConfidenceTier      `json:"confidence"`
	Warnings      []string            `json:"warnings"`
	Fingerprint   core.Hash           `json:"fingerprint"`
}
