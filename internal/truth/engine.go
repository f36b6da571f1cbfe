// Package truth builds the truth layer: hourly aggregation, baseline model,
// residual map, changepoints, anomaly ledger and confidence tier, composed
// into one versioned snapshot.
package truth

import (
	"fmt"

	"gridtruth/domain/core"
	"gridtruth/domain/energy"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal"
	"gridtruth/internal/bounded"
	"gridtruth/internal/canonical"
)

// Input is one truth-engine invocation.
type Input struct {
	RunID       core.RunID
	RevisionID  core.RevisionID
	GeneratedAt core.Timestamp
	Series      *energy.IntervalSeries
	Bills       []energy.BillRow
	HasBillText bool
}

// Engine composes the truth-layer builders. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	opts   Options
	logger *internal.Logger
}

// NewEngine creates an engine with validated options.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return &Engine{opts: opts, logger: internal.DefaultLogger.With("truth")}, nil
}

// Options returns the engine's thresholds.
func (e *Engine) Options() Options {
	return e.opts
}

// Validate checks every input shape before any computation starts.
func (e *Engine) Validate(in Input) error {
	if in.GeneratedAt.IsZero() {
		return core.ErrMissingTime
	}
	if err := ValidateSeries(in.Series); err != nil {
		return err
	}
	return ValidateBills(in.Bills)
}

// Build runs the full truth pipeline. Thin or missing data degrades to the
// documented fallbacks; only malformed input returns an error, and then no
// snapshot is returned.
func (e *Engine) Build(in Input) (*domainTruth.Snapshot, error) {
	if err := e.Validate(in); err != nil {
		return nil, err
	}

	obs, err := AggregateHourly(in.Series)
	if err != nil {
		return nil, err
	}
	weather := DailyDegreeDays(obs, e.opts.BaseTempF)

	coverage := domainTruth.Coverage{
		HourlyBins:   len(obs),
		IntervalDays: len(distinctDates(obs)),
		WeatherDays:  len(weather),
		BillMonths:   len(in.Bills),
		HasBillText:  in.HasBillText,
	}
	if in.Series != nil {
		coverage.PointCount = len(in.Series.Points)
		coverage.GranularityMinutes = in.Series.GranularityMinutes
		coverage.Timezone = in.Series.Timezone
	}
	if len(obs) > 0 {
		dates := distinctDates(obs)
		coverage.StartDate = dates[0]
		coverage.EndDate = dates[len(dates)-1]
	}

	var warnings []string
	baseline, baselineWarnings := BuildBaseline(BaselineInput{
		Observations: obs,
		Weather:      weather,
		Bills:        in.Bills,
	}, e.opts)
	warnings = append(warnings, baselineWarnings...)
	e.logger.Debug("run %s: baseline %s over %d bins (%d days)", in.RunID, baseline.Kind, len(obs), coverage.IntervalDays)

	residuals := ComputeResiduals(obs, &baseline)
	residualMap := BuildResidualMap(residuals, e.opts.MaxPeakCells)
	changepoints := DetectChangepoints(BuildDailyProfiles(obs, weather, e.opts.MinHoursPerDay), e.opts)
	anomalies := BuildAnomalyLedger(residuals, e.opts)
	confidence, confidenceWarnings := ComputeConfidenceTier(ConfidenceInput{Coverage: coverage, Baseline: baseline}, e.opts)
	warnings = append(warnings, confidenceWarnings...)

	snap := &domainTruth.Snapshot{
		SchemaVersion: domainTruth.SchemaVersion,
		RunID:         in.RunID,
		RevisionID:    in.RevisionID,
		GeneratedAt:   in.GeneratedAt,
		Coverage:      coverage,
		Baseline:      roundBaseline(baseline),
		ResidualMap:   residualMap,
		Changepoints:  changepoints,
		Anomalies:     anomalies,
		Confidence:    confidence,
		Warnings:      bounded.Strings(warnings, e.opts.MaxWarnings),
	}
	fp, err := canonical.Fingerprint(snap)
	if err != nil {
		return nil, fmt.Errorf("fingerprint truth snapshot: %w", err)
	}
	snap.Fingerprint = fp
	snap.SnapshotID = core.NewSnapshotID(in.RunID, in.RevisionID, fp)

	e.logger.Debug("run %s: %d changepoints, %d anomalies, tier %s, fingerprint %s",
		in.RunID, len(changepoints), len(anomalies), confidence.Tier, fp.Short())
	return snap, nil
}
