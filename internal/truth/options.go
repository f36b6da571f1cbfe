package truth

import (
	"fmt"
	"sort"
)

// Tunable heuristics. The values are kept for behavioral parity with the
// reports already in circulation; none of them is derived from first principles.
const (
	DefaultBaseTempF             = 65.0
	DefaultMinWeatherDays        = 10
	DefaultMinHourSamples        = 10
	DefaultSeasonalMinSamples    = 8
	DefaultBillsTrailingMonths   = 24
	DefaultTierADays             = 28
	DefaultTierBDays             = 14
	DefaultTierAR2               = 0.55
	DefaultTierBR2               = 0.35
	DefaultMaxPeakCells          = 10
	DefaultChangepointWindowDays = 7
	DefaultMinHoursPerDay        = 12
	DefaultMaxChangepoints       = 20
	DefaultAnomalySigma          = 4.0
	DefaultGapToleranceHours     = 2
	DefaultMaxCandidateWindows   = 30
	DefaultDriftMinDays          = 28
	DefaultDriftEdgeDays         = 7
	DefaultDriftFloorKW          = 3.0
	DefaultDriftRelative         = 0.12
	DefaultVolatilityMinDays     = 14
	DefaultVolatilityMultiplier  = 2.2
	DefaultMaxVolatilityDays     = 6
	DefaultScheduleMinDays       = 21
	DefaultScheduleFloorKW       = 2.0
	DefaultScheduleRelative      = 0.08
	DefaultMaxAnomalies          = 50
	DefaultMaxWarnings           = 120
)

// Options carries every threshold the truth layer uses.
type Options struct {
	BaseTempF           float64
	MinWeatherDays      int
	MinHourSamples      int
	SeasonalMinSamples  int
	BillsTrailingMonths int

	TierADays int
	TierBDays int
	TierAR2   float64
	TierBR2   float64

	MaxPeakCells int

	ChangepointWindowDays int
	MinHoursPerDay        int
	MaxChangepoints       int

	AnomalySigma         float64
	GapToleranceHours    int
	MaxCandidateWindows  int
	DriftMinDays         int
	DriftEdgeDays        int
	DriftFloorKW         float64
	DriftRelative        float64
	VolatilityMinDays    int
	VolatilityMultiplier float64
	MaxVolatilityDays    int
	ScheduleMinDays      int
	ScheduleFloorKW      float64
	ScheduleRelative     float64
	MaxAnomalies         int

	MaxWarnings int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		BaseTempF:             DefaultBaseTempF,
		MinWeatherDays:        DefaultMinWeatherDays,
		MinHourSamples:        DefaultMinHourSamples,
		SeasonalMinSamples:    DefaultSeasonalMinSamples,
		BillsTrailingMonths:   DefaultBillsTrailingMonths,
		TierADays:             DefaultTierADays,
		TierBDays:             DefaultTierBDays,
		TierAR2:               DefaultTierAR2,
		TierBR2:               DefaultTierBR2,
		MaxPeakCells:          DefaultMaxPeakCells,
		ChangepointWindowDays: DefaultChangepointWindowDays,
		MinHoursPerDay:        DefaultMinHoursPerDay,
		MaxChangepoints:       DefaultMaxChangepoints,
		AnomalySigma:          DefaultAnomalySigma,
		GapToleranceHours:     DefaultGapToleranceHours,
		MaxCandidateWindows:   DefaultMaxCandidateWindows,
		DriftMinDays:          DefaultDriftMinDays,
		DriftEdgeDays:         DefaultDriftEdgeDays,
		DriftFloorKW:          DefaultDriftFloorKW,
		DriftRelative:         DefaultDriftRelative,
		VolatilityMinDays:     DefaultVolatilityMinDays,
		VolatilityMultiplier:  DefaultVolatilityMultiplier,
		MaxVolatilityDays:     DefaultMaxVolatilityDays,
		ScheduleMinDays:       DefaultScheduleMinDays,
		ScheduleFloorKW:       DefaultScheduleFloorKW,
		ScheduleRelative:      DefaultScheduleRelative,
		MaxAnomalies:          DefaultMaxAnomalies,
		MaxWarnings:           DefaultMaxWarnings,
	}
}

// Validate rejects option sets that would make a loop or cap meaningless.
func (o Options) Validate() error {
	positive := map[string]int{
		"min_weather_days":        o.MinWeatherDays,
		"min_hour_samples":        o.MinHourSamples,
		"seasonal_min_samples":    o.SeasonalMinSamples,
		"bills_trailing_months":   o.BillsTrailingMonths,
		"max_peak_cells":          o.MaxPeakCells,
		"changepoint_window_days": o.ChangepointWindowDays,
		"max_changepoints":        o.MaxChangepoints,
		"max_candidate_windows":   o.MaxCandidateWindows,
		"drift_edge_days":         o.DriftEdgeDays,
		"max_volatility_days":     o.MaxVolatilityDays,
		"max_anomalies":           o.MaxAnomalies,
		"max_warnings":            o.MaxWarnings,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] < 1 {
			return fmt.Errorf("truth.%s must be at least 1", name)
		}
	}
	if o.GapToleranceHours < 0 {
		return fmt.Errorf("truth.gap_tolerance_hours must not be negative")
	}
	if o.AnomalySigma <= 0 || o.VolatilityMultiplier <= 0 {
		return fmt.Errorf("truth.anomaly_sigma and truth.volatility_multiplier must be positive")
	}
	if o.TierBDays > o.TierADays {
		return fmt.Errorf("truth.tier_b_days must not exceed truth.tier_a_days")
	}
	if o.TierAR2 < 0 || o.TierAR2 > 1 || o.TierBR2 < 0 || o.TierBR2 > 1 {
		return fmt.Errorf("truth r2 cutoffs must be between 0.0 and 1.0")
	}
	if o.DriftMinDays < 2*o.DriftEdgeDays {
		return fmt.Errorf("truth.drift_min_days must cover both drift edges")
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
