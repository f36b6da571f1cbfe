package config

import (
	"strings"

	"github.com/spf13/viper"

	"gridtruth/internal"
	"gridtruth/internal/claims"
	"gridtruth/internal/errors"
	"gridtruth/internal/scenario"
	"gridtruth/internal/truth"
	"gridtruth/internal/verifier"
)

// EnvPrefix prefixes every environment override, e.g. GRIDTRUTH_TRUTH_ANOMALY_SIGMA.
const EnvPrefix = "GRIDTRUTH"

// Config represents the complete application configuration
type Config struct {
	Truth    TruthConfig    `mapstructure:"truth"`
	Verifier VerifierConfig `mapstructure:"verifier"`
	Claims   ClaimsConfig   `mapstructure:"claims"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TruthConfig holds the truth layer heuristics
type TruthConfig struct {
	BaseTempF             float64 `mapstructure:"base_temp_f"`
	MinWeatherDays        int     `mapstructure:"min_weather_days"`
	MinHourSamples        int     `mapstructure:"min_hour_samples"`
	SeasonalMinSamples    int     `mapstructure:"seasonal_min_samples"`
	BillsTrailingMonths   int     `mapstructure:"bills_trailing_months"`
	TierADays             int     `mapstructure:"tier_a_days"`
	TierBDays             int     `mapstructure:"tier_b_days"`
	TierAR2               float64 `mapstructure:"tier_a_r2"`
	TierBR2               float64 `mapstructure:"tier_b_r2"`
	MaxPeakCells          int     `mapstructure:"max_peak_cells"`
	ChangepointWindowDays int     `mapstructure:"changepoint_window_days"`
	MinHoursPerDay        int     `mapstructure:"min_hours_per_day"`
	MaxChangepoints       int     `mapstructure:"max_changepoints"`
	AnomalySigma          float64 `mapstructure:"anomaly_sigma"`
	GapToleranceHours     int     `mapstructure:"gap_tolerance_hours"`
	MaxCandidateWindows   int     `mapstructure:"max_candidate_windows"`
	DriftMinDays          int     `mapstructure:"drift_min_days"`
	DriftEdgeDays         int     `mapstructure:"drift_edge_days"`
	DriftFloorKW          float64 `mapstructure:"drift_floor_kw"`
	DriftRelative         float64 `mapstructure:"drift_relative"`
	VolatilityMinDays     int     `mapstructure:"volatility_min_days"`
	VolatilityMultiplier  float64 `mapstructure:"volatility_multiplier"`
	MaxVolatilityDays     int     `mapstructure:"max_volatility_days"`
	ScheduleMinDays       int     `mapstructure:"schedule_min_days"`
	ScheduleFloorKW       float64 `mapstructure:"schedule_floor_kw"`
	ScheduleRelative      float64 `mapstructure:"schedule_relative"`
	MaxAnomalies          int     `mapstructure:"max_anomalies"`
	MaxWarnings           int     `mapstructure:"max_warnings"`
}

// VerifierConfig holds the check battery tolerances
type VerifierConfig struct {
	ReconciliationToleranceUSD float64 `mapstructure:"reconciliation_tolerance_usd"`
	CoverageToleranceDays      float64 `mapstructure:"coverage_tolerance_days"`
	CoverageToleranceRatio     float64 `mapstructure:"coverage_tolerance_ratio"`
	MaxPaths                   int     `mapstructure:"max_paths"`
}

// ClaimsConfig holds the policy list caps
type ClaimsConfig struct {
	MaxBlockedReasons   int `mapstructure:"max_blocked_reasons"`
	MaxRequiredNextData int `mapstructure:"max_required_next_data"`
}

// ScenarioConfig holds the scenario lab caps
type ScenarioConfig struct {
	MaxTemplates      int `mapstructure:"max_templates"`
	MaxScenarios      int `mapstructure:"max_scenarios"`
	MaxFrontierPoints int `mapstructure:"max_frontier_points"`
	MaxBlocked        int `mapstructure:"max_blocked"`
	MaxProsCons       int `mapstructure:"max_pros_cons"`
	MaxGatingItems    int `mapstructure:"max_gating_items"`
	MaxWarnings       int `mapstructure:"max_warnings"`
	MinLoadShiftDays  int `mapstructure:"min_load_shift_days"`
}

// PipelineConfig holds batch execution settings
type PipelineConfig struct {
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional file and GRIDTRUTH_* environment
// variables. An empty path means defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides.
func Default() *Config {
	t := truth.DefaultOptions()
	vo := verifier.DefaultOptions()
	c := claims.DefaultOptions()
	s := scenario.DefaultOptions()
	return &Config{
		Truth: TruthConfig{
			BaseTempF:             t.BaseTempF,
			MinWeatherDays:        t.MinWeatherDays,
			MinHourSamples:        t.MinHourSamples,
			SeasonalMinSamples:    t.SeasonalMinSamples,
			BillsTrailingMonths:   t.BillsTrailingMonths,
			TierADays:             t.TierADays,
			TierBDays:             t.TierBDays,
			TierAR2:               t.TierAR2,
			TierBR2:               t.TierBR2,
			MaxPeakCells:          t.MaxPeakCells,
			ChangepointWindowDays: t.ChangepointWindowDays,
			MinHoursPerDay:        t.MinHoursPerDay,
			MaxChangepoints:       t.MaxChangepoints,
			AnomalySigma:          t.AnomalySigma,
			GapToleranceHours:     t.GapToleranceHours,
			MaxCandidateWindows:   t.MaxCandidateWindows,
			DriftMinDays:          t.DriftMinDays,
			DriftEdgeDays:         t.DriftEdgeDays,
			DriftFloorKW:          t.DriftFloorKW,
			DriftRelative:         t.DriftRelative,
			VolatilityMinDays:     t.VolatilityMinDays,
			VolatilityMultiplier:  t.VolatilityMultiplier,
			MaxVolatilityDays:     t.MaxVolatilityDays,
			ScheduleMinDays:       t.ScheduleMinDays,
			ScheduleFloorKW:       t.ScheduleFloorKW,
			ScheduleRelative:      t.ScheduleRelative,
			MaxAnomalies:          t.MaxAnomalies,
			MaxWarnings:           t.MaxWarnings,
		},
		Verifier: VerifierConfig{
			ReconciliationToleranceUSD: vo.ReconciliationToleranceUSD,
			CoverageToleranceDays:      vo.CoverageToleranceDays,
			CoverageToleranceRatio:     vo.CoverageToleranceRatio,
			MaxPaths:                   vo.MaxPaths,
		},
		Claims: ClaimsConfig{
			MaxBlockedReasons:   c.MaxBlockedReasons,
			MaxRequiredNextData: c.MaxRequiredNextData,
		},
		Scenario: ScenarioConfig{
			MaxTemplates:      s.MaxTemplates,
			MaxScenarios:      s.MaxScenarios,
			MaxFrontierPoints: s.MaxFrontierPoints,
			MaxBlocked:        s.MaxBlocked,
			MaxProsCons:       s.MaxProsCons,
			MaxGatingItems:    s.MaxGatingItems,
			MaxWarnings:       s.MaxWarnings,
			MinLoadShiftDays:  s.MinLoadShiftDays,
		},
		Pipeline: PipelineConfig{BatchConcurrency: DefaultBatchConcurrency},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// DefaultBatchConcurrency bounds concurrent bundles in a batch run.
const DefaultBatchConcurrency = 4

// setDefaults registers every key so that environment overrides are picked
// up by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("truth.base_temp_f", d.Truth.BaseTempF)
	v.SetDefault("truth.min_weather_days", d.Truth.MinWeatherDays)
	v.SetDefault("truth.min_hour_samples", d.Truth.MinHourSamples)
	v.SetDefault("truth.seasonal_min_samples", d.Truth.SeasonalMinSamples)
	v.SetDefault("truth.bills_trailing_months", d.Truth.BillsTrailingMonths)
	v.SetDefault("truth.tier_a_days", d.Truth.TierADays)
	v.SetDefault("truth.tier_b_days", d.Truth.TierBDays)
	v.SetDefault("truth.tier_a_r2", d.Truth.TierAR2)
	v.SetDefault("truth.tier_b_r2", d.Truth.TierBR2)
	v.SetDefault("truth.max_peak_cells", d.Truth.MaxPeakCells)
	v.SetDefault("truth.changepoint_window_days", d.Truth.ChangepointWindowDays)
	v.SetDefault("truth.min_hours_per_day", d.Truth.MinHoursPerDay)
	v.SetDefault("truth.max_changepoints", d.Truth.MaxChangepoints)
	v.SetDefault("truth.anomaly_sigma", d.Truth.AnomalySigma)
	v.SetDefault("truth.gap_tolerance_hours", d.Truth.GapToleranceHours)
	v.SetDefault("truth.max_candidate_windows", d.Truth.MaxCandidateWindows)
	v.SetDefault("truth.drift_min_days", d.Truth.DriftMinDays)
	v.SetDefault("truth.drift_edge_days", d.Truth.DriftEdgeDays)
	v.SetDefault("truth.drift_floor_kw", d.Truth.DriftFloorKW)
	v.SetDefault("truth.drift_relative", d.Truth.DriftRelative)
	v.SetDefault("truth.volatility_min_days", d.Truth.VolatilityMinDays)
	v.SetDefault("truth.volatility_multiplier", d.Truth.VolatilityMultiplier)
	v.SetDefault("truth.max_volatility_days", d.Truth.MaxVolatilityDays)
	v.SetDefault("truth.schedule_min_days", d.Truth.ScheduleMinDays)
	v.SetDefault("truth.schedule_floor_kw", d.Truth.ScheduleFloorKW)
	v.SetDefault("truth.schedule_relative", d.Truth.ScheduleRelative)
	v.SetDefault("truth.max_anomalies", d.Truth.MaxAnomalies)
	v.SetDefault("truth.max_warnings", d.Truth.MaxWarnings)

	v.SetDefault("verifier.reconciliation_tolerance_usd", d.Verifier.ReconciliationToleranceUSD)
	v.SetDefault("verifier.coverage_tolerance_days", d.Verifier.CoverageToleranceDays)
	v.SetDefault("verifier.coverage_tolerance_ratio", d.Verifier.CoverageToleranceRatio)
	v.SetDefault("verifier.max_paths", d.Verifier.MaxPaths)

	v.SetDefault("claims.max_blocked_reasons", d.Claims.MaxBlockedReasons)
	v.SetDefault("claims.max_required_next_data", d.Claims.MaxRequiredNextData)

	v.SetDefault("scenario.max_templates", d.Scenario.MaxTemplates)
	v.SetDefault("scenario.max_scenarios", d.Scenario.MaxScenarios)
	v.SetDefault("scenario.max_frontier_points", d.Scenario.MaxFrontierPoints)
	v.SetDefault("scenario.max_blocked", d.Scenario.MaxBlocked)
	v.SetDefault("scenario.max_pros_cons", d.Scenario.MaxProsCons)
	v.SetDefault("scenario.max_gating_items", d.Scenario.MaxGatingItems)
	v.SetDefault("scenario.max_warnings", d.Scenario.MaxWarnings)
	v.SetDefault("scenario.min_load_shift_days", d.Scenario.MinLoadShiftDays)

	v.SetDefault("pipeline.batch_concurrency", d.Pipeline.BatchConcurrency)

	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := c.TruthOptions().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if err := c.VerifierOptions().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if err := c.ClaimsOptions().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if err := c.ScenarioOptions().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if c.Pipeline.BatchConcurrency < 1 {
		return errors.ConfigInvalid("pipeline.batch_concurrency must be at least 1")
	}
	switch strings.ToUpper(strings.TrimSpace(c.Logging.Level)) {
	case "ERROR", "WARN", "INFO", "DEBUG", "TRACE":
	default:
		return errors.ConfigInvalid("logging.level must be one of error, warn, info, debug, trace")
	}
	return nil
}

// LogLevel returns the configured logger level.
func (c *Config) LogLevel() internal.LogLevel {
	return internal.ParseLogLevel(c.Logging.Level)
}

// TruthOptions converts the truth section.
func (c *Config) TruthOptions() truth.Options {
	t := c.Truth
	return truth.Options{
		BaseTempF:             t.BaseTempF,
		MinWeatherDays:        t.MinWeatherDays,
		MinHourSamples:        t.MinHourSamples,
		SeasonalMinSamples:    t.SeasonalMinSamples,
		BillsTrailingMonths:   t.BillsTrailingMonths,
		TierADays:             t.TierADays,
		TierBDays:             t.TierBDays,
		TierAR2:               t.TierAR2,
		TierBR2:               t.TierBR2,
		MaxPeakCells:          t.MaxPeakCells,
		ChangepointWindowDays: t.ChangepointWindowDays,
		MinHoursPerDay:        t.MinHoursPerDay,
		MaxChangepoints:       t.MaxChangepoints,
		AnomalySigma:          t.AnomalySigma,
		GapToleranceHours:     t.GapToleranceHours,
		MaxCandidateWindows:   t.MaxCandidateWindows,
		DriftMinDays:          t.DriftMinDays,
		DriftEdgeDays:         t.DriftEdgeDays,
		DriftFloorKW:          t.DriftFloorKW,
		DriftRelative:         t.DriftRelative,
		VolatilityMinDays:     t.VolatilityMinDays,
		VolatilityMultiplier:  t.VolatilityMultiplier,
		MaxVolatilityDays:     t.MaxVolatilityDays,
		ScheduleMinDays:       t.ScheduleMinDays,
		ScheduleFloorKW:       t.ScheduleFloorKW,
		ScheduleRelative:      t.ScheduleRelative,
		MaxAnomalies:          t.MaxAnomalies,
		MaxWarnings:           t.MaxWarnings,
	}
}

// VerifierOptions converts the verifier section.
func (c *Config) VerifierOptions() verifier.Options {
	return verifier.Options{
		ReconciliationToleranceUSD: c.Verifier.ReconciliationToleranceUSD,
		CoverageToleranceDays:      c.Verifier.CoverageToleranceDays,
		CoverageToleranceRatio:     c.Verifier.CoverageToleranceRatio,
		MaxPaths:                   c.Verifier.MaxPaths,
	}
}

// ClaimsOptions converts the claims section.
func (c *Config) ClaimsOptions() claims.Options {
	return claims.Options{
		MaxBlockedReasons:   c.Claims.MaxBlockedReasons,
		MaxRequiredNextData: c.Claims.MaxRequiredNextData,
	}
}

// ScenarioOptions converts the scenario section.
func (c *Config) ScenarioOptions() scenario.Options {
	s := c.Scenario
	return scenario.Options{
		MaxTemplates:      s.MaxTemplates,
		MaxScenarios:      s.MaxScenarios,
		MaxFrontierPoints: s.MaxFrontierPoints,
		MaxBlocked:        s.MaxBlocked,
		MaxProsCons:       s.MaxProsCons,
		MaxGatingItems:    s.MaxGatingItems,
		MaxWarnings:       s.MaxWarnings,
		MinLoadShiftDays:  s.MinLoadShiftDays,
	}
}
