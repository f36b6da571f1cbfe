package scenario

import "fmt"

// Caps and thresholds of the scenario lab.
const (
	DefaultMaxTemplates      = 15
	DefaultMaxScenarios      = 25
	DefaultMaxFrontierPoints = 15
	DefaultMaxBlocked        = 25
	DefaultMaxProsCons       = 5
	DefaultMaxGatingItems    = 20
	DefaultMaxWarnings       = 80
	DefaultMinLoadShiftDays  = 14
)

// Options tunes the lab caps.
type Options struct {
	MaxTemplates      int
	MaxScenarios      int
	MaxFrontierPoints int
	MaxBlocked        int
	MaxProsCons       int
	MaxGatingItems    int
	MaxWarnings       int
	MinLoadShiftDays  int
}

// DefaultOptions returns the documented caps.
func DefaultOptions() Options {
	return Options{
		MaxTemplates:      DefaultMaxTemplates,
		MaxScenarios:      DefaultMaxScenarios,
		MaxFrontierPoints: DefaultMaxFrontierPoints,
		MaxBlocked:        DefaultMaxBlocked,
		MaxProsCons:       DefaultMaxProsCons,
		MaxGatingItems:    DefaultMaxGatingItems,
		MaxWarnings:       DefaultMaxWarnings,
		MinLoadShiftDays:  DefaultMinLoadShiftDays,
	}
}

// Validate rejects non-positive caps.
func (o Options) Validate() error {
	caps := []struct {
		name string
		v    int
	}{
		{"max_templates", o.MaxTemplates},
		{"max_scenarios", o.MaxScenarios},
		{"max_frontier_points", o.MaxFrontierPoints},
		{"max_blocked", o.MaxBlocked},
		{"max_pros_cons", o.MaxProsCons},
		{"max_gating_items", o.MaxGatingItems},
		{"max_warnings", o.MaxWarnings},
	}
	for _, c := range caps {
		if c.v < 1 {
			return fmt.Errorf("scenario.%s must be at least 1", c.name)
		}
	}
	if o.MinLoadShiftDays < 0 {
		return fmt.Errorf("scenario.min_load_shift_days must not be negative")
	}
	return nil
}
