package verifier

import "fmt"

// Defaults for the check battery.
const (
	DefaultReconciliationToleranceUSD = 0.01
	DefaultCoverageToleranceDays      = 30.0
	DefaultCoverageToleranceRatio     = 0.35
	DefaultMaxPaths                   = 24
)

// Options tunes the tolerances of the check battery.
type Options struct {
	ReconciliationToleranceUSD float64
	CoverageToleranceDays      float64
	CoverageToleranceRatio     float64
	MaxPaths                   int
}

// DefaultOptions returns the documented tolerances.
func DefaultOptions() Options {
	return Options{
		ReconciliationToleranceUSD: DefaultReconciliationToleranceUSD,
		CoverageToleranceDays:      DefaultCoverageToleranceDays,
		CoverageToleranceRatio:     DefaultCoverageToleranceRatio,
		MaxPaths:                   DefaultMaxPaths,
	}
}

// Validate rejects negative tolerances and a non-positive path cap.
func (o Options) Validate() error {
	if o.ReconciliationToleranceUSD < 0 {
		return fmt.Errorf("verifier.reconciliation_tolerance_usd must not be negative")
	}
	if o.CoverageToleranceDays < 0 || o.CoverageToleranceRatio < 0 {
		return fmt.Errorf("verifier coverage tolerances must not be negative")
	}
	if o.MaxPaths < 1 {
		return fmt.Errorf("verifier.max_paths must be at least 1")
	}
	return nil
}
