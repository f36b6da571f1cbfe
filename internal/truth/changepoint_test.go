package truth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/testkit"
)

func TestDailyProfiles(t *testing.T) {
	cfg := testkit.DefaultLoadConfig()
	cfg.Days = 7
	days := BuildDailyProfiles(hourly(t, cfg), nil, DefaultMinHoursPerDay)
	require.Len(t, days, 7)

	monday := days[0]
	assert.InDelta(t, 5.0, monday.BaseloadKW, 1e-9)
	assert.InDelta(t, 15.0, monday.PeakKW, 1e-9)
	assert.Equal(t, 10.0, monday.OperatingHours)

	saturday := days[5]
	assert.InDelta(t, 5.0, saturday.PeakKW, 1e-9)
	assert.Equal(t, 0.0, saturday.OperatingHours, "flat days have no operating schedule")
}

func TestWeekendOccupancyIsScheduleShift(t *testing.T) {
	cfg := testkit.DefaultLoadConfig()
	cfg.Days = 42
	cfg.WeekendOccupiedFromDay = 21
	cps := DetectChangepoints(BuildDailyProfiles(hourly(t, cfg), nil, DefaultMinHoursPerDay), DefaultOptions())

	var schedule []domainTruth.Changepoint
	for _, cp := range cps {
		if cp.Type == domainTruth.ScheduleShift {
			schedule = append(schedule, cp)
		}
	}
	require.NotEmpty(t, schedule)
	assert.Equal(t, "2024-01-22", schedule[0].Date)
	assert.Greater(t, schedule[0].Magnitude, 0.0)
	assert.Greater(t, schedule[0].Confidence, 0.0)
	assert.LessOrEqual(t, schedule[0].Confidence, 1.0)
	assert.NotEmpty(t, schedule[0].Notes)
}

func TestSteadyLoadHasNoChangepoints(t *testing.T) {
	cfg := testkit.DefaultLoadConfig()
	cfg.Days = 42
	cps := DetectChangepoints(BuildDailyProfiles(hourly(t, cfg), nil, DefaultMinHoursPerDay), DefaultOptions())
	assert.Empty(t, cps)
}

func TestBaseloadStepIsDetectedOnce(t *testing.T) {
	days := make([]DailyProfile, 30)
	for i := range days {
		days[i] = DailyProfile{Date: dateOf(i), BaseloadKW: 5, PeakKW: 20, OperatingHours: 10}
		if i >= 15 {
			days[i].BaseloadKW = 9
		}
	}
	cps := DetectChangepoints(days, DefaultOptions())
	require.Len(t, cps, 1)
	assert.Equal(t, domainTruth.BaseloadShift, cps[0].Type)
	// Day 14 is the first window whose next-week mean both clears the
	// threshold and agrees with the following half-window.
	assert.Equal(t, dateOf(14), cps[0].Date)
	assert.InDelta(t, 24.0/7, cps[0].Magnitude, 1e-3)
}

func TestTransientBumpOnsetIsNotReported(t *testing.T) {
	days := make([]DailyProfile, 30)
	for i := range days {
		days[i] = DailyProfile{Date: dateOf(i), BaseloadKW: 5, PeakKW: 20, OperatingHours: 10}
		if i >= 10 && i < 13 {
			days[i].BaseloadKW = 9
		}
	}
	// The rise never persists into the following half-window, so no upward
	// shift may be emitted for it.
	for _, cp := range DetectChangepoints(days, DefaultOptions()) {
		if cp.Type == domainTruth.BaseloadShift {
			assert.Less(t, cp.Magnitude, 0.0)
		}
	}
}

func TestChangepointsBounded(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChangepoints = 1
	days := make([]DailyProfile, 60)
	for i := range days {
		level := float64(5 + 10*(i/15))
		days[i] = DailyProfile{Date: dateOf(i), BaseloadKW: level, PeakKW: 40, OperatingHours: 10}
	}
	assert.Len(t, DetectChangepoints(days, opts), 1)
}

func dateOf(i int) string {
	return testkit.DefaultLoadConfig().Start.AddDate(0, 0, i).Format("2006-01-02")
}
