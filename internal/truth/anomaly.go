package truth

import (
	"fmt"
	"math"
	"sort"
	"time"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

// The robust scale never drops below max(floor, relative*mean |observed|) so a
// perfectly fitted series does not flag rounding noise.
const (
	robustScaleFloorKW       = 0.05
	robustScaleFloorRelative = 0.01
)

var likelyDrivers = map[domainTruth.AnomalyClass][]string{
	domainTruth.AnomalySpike: {
		"equipment start-up or simultaneous loads",
		"meter or data artifact",
		"short-term occupancy or production surge",
	},
	domainTruth.AnomalyDrop: {
		"equipment outage or shutdown",
		"holiday or unplanned closure",
		"missing or zero-filled intervals",
	},
	domainTruth.AnomalyDrift: {
		"added or removed permanent load",
		"gradual equipment degradation",
		"seasonal change not captured by the baseline",
	},
	domainTruth.AnomalyVolatility: {
		"controls hunting or cycling equipment",
		"data quality noise",
		"intermittent process loads",
	},
	domainTruth.AnomalySchedule: {
		"building automation schedule change",
		"shift pattern change",
		"weekend operations differ from weekday pattern",
	},
}

var requiredNextData = map[domainTruth.AnomalyClass][]string{
	domainTruth.AnomalySpike:      {"equipment_runtime_logs", "sub_meter_data"},
	domainTruth.AnomalyDrop:       {"meter_event_log", "site_operations_calendar"},
	domainTruth.AnomalyDrift:      {"equipment_inventory_changes", "weather_daily"},
	domainTruth.AnomalyVolatility: {"control_setpoint_history", "sub_meter_data"},
	domainTruth.AnomalySchedule:   {"bms_schedule_export", "occupancy_schedule"},
}

type anomalyWindow struct {
	start, end time.Time
	peak       float64
	run        int
	confidence float64
}

// BuildAnomalyLedger detects spike/drop windows, drift, volatility bursts and
// weekday/weekend schedule anomalies from the residual series.
func BuildAnomalyLedger(residuals []Residual, opts Options) []domainTruth.AnomalyLedgerItem {
	if len(residuals) == 0 {
		return []domainTruth.AnomalyLedgerItem{}
	}
	sorted := append([]Residual(nil), residuals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Obs.Timestamp.Before(sorted[j].Obs.Timestamp)
	})

	var items []domainTruth.AnomalyLedgerItem
	items = append(items, spikeDropItems(sorted, opts)...)
	days := groupResidualDays(sorted)
	items = append(items, driftItems(days, opts)...)
	items = append(items, volatilityItems(days, opts)...)
	items = append(items, scheduleItems(sorted, days, opts)...)

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if math.Abs(a.MagnitudeKW) != math.Abs(b.MagnitudeKW) {
			return math.Abs(a.MagnitudeKW) > math.Abs(b.MagnitudeKW)
		}
		if a.Class.Rank() != b.Class.Rank() {
			return a.Class.Rank() < b.Class.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.WindowStart.Equal(b.WindowStart) {
			return a.WindowStart.Before(b.WindowStart)
		}
		return a.ID < b.ID
	})
	if len(items) > opts.MaxAnomalies {
		items = items[:opts.MaxAnomalies]
	}
	if items == nil {
		items = []domainTruth.AnomalyLedgerItem{}
	}
	return items
}

// RobustScale is MAD*1.4826 of the residuals, floored relative to the
// observed load.
func RobustScale(residuals []Residual) float64 {
	vals := make([]float64, len(residuals))
	abs := make([]float64, len(residuals))
	for i, r := range residuals {
		vals[i] = r.KW
		abs[i] = math.Abs(r.Obs.ObservedKW)
	}
	floor := math.Max(robustScaleFloorKW, robustScaleFloorRelative*numeric.Mean(abs))
	return math.Max(numeric.RobustSigma(vals), floor)
}

func spikeDropItems(residuals []Residual, opts Options) []domainTruth.AnomalyLedgerItem {
	cutoff := opts.AnomalySigma * RobustScale(residuals)
	maxGap := time.Duration(opts.GapToleranceHours+1) * time.Hour

	var windows []anomalyWindow
	var cur *anomalyWindow
	var last time.Time
	for _, r := range residuals {
		if math.Abs(r.KW) <= cutoff {
			continue
		}
		ts := r.Obs.Timestamp
		if cur != nil && sameSign(cur.peak, r.KW) && ts.Sub(last) <= maxGap {
			cur.end = ts.Add(time.Hour)
			cur.run++
			if math.Abs(r.KW) > math.Abs(cur.peak) {
				cur.peak = r.KW
			}
		} else {
			if cur != nil {
				windows = append(windows, *cur)
			}
			cur = &anomalyWindow{start: ts, end: ts.Add(time.Hour), peak: r.KW, run: 1}
		}
		last = ts
	}
	if cur != nil {
		windows = append(windows, *cur)
	}

	sort.Slice(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if math.Abs(a.peak) != math.Abs(b.peak) {
			return math.Abs(a.peak) > math.Abs(b.peak)
		}
		if a.run != b.run {
			return a.run > b.run
		}
		return a.start.Before(b.start)
	})
	if len(windows) > opts.MaxCandidateWindows {
		windows = windows[:opts.MaxCandidateWindows]
	}

	items := make([]domainTruth.AnomalyLedgerItem, 0, len(windows))
	seq := map[domainTruth.AnomalyClass]int{}
	for _, w := range windows {
		class := domainTruth.AnomalySpike
		if w.peak < 0 {
			class = domainTruth.AnomalyDrop
		}
		seq[class]++
		w.confidence = numeric.Clamp01(math.Abs(w.peak) / (2 * cutoff))
		items = append(items, newItem(class, w, seq[class]))
	}
	return items
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

type residualDay struct {
	date       string
	start, end time.Time
	residuals  []float64
	observed   []float64
	weekend    bool
}

func groupResidualDays(residuals []Residual) []residualDay {
	index := make(map[string]int)
	var days []residualDay
	for _, r := range residuals {
		i, ok := index[r.Obs.Date]
		if !ok {
			i = len(days)
			index[r.Obs.Date] = i
			days = append(days, residualDay{
				date:    r.Obs.Date,
				start:   r.Obs.Timestamp,
				end:     r.Obs.Timestamp.Add(time.Hour),
				weekend: r.Obs.IsWeekend(),
			})
		}
		d := &days[i]
		d.residuals = append(d.residuals, r.KW)
		d.observed = append(d.observed, r.Obs.ObservedKW)
		if r.Obs.Timestamp.Before(d.start) {
			d.start = r.Obs.Timestamp
		}
		if end := r.Obs.Timestamp.Add(time.Hour); end.After(d.end) {
			d.end = end
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date < days[j].date })
	return days
}

func driftItems(days []residualDay, opts Options) []domainTruth.AnomalyLedgerItem {
	if len(days) < opts.DriftMinDays {
		return nil
	}
	edge := opts.DriftEdgeDays
	var head, tail, observed []float64
	for i, d := range days {
		m := numeric.Mean(d.residuals)
		if i < edge {
			head = append(head, m)
		}
		if i >= len(days)-edge {
			tail = append(tail, m)
		}
		observed = append(observed, d.observed...)
	}
	delta := numeric.Mean(tail) - numeric.Mean(head)
	threshold := math.Max(opts.DriftFloorKW, opts.DriftRelative*math.Abs(numeric.Mean(observed)))
	if math.Abs(delta) <= threshold {
		return nil
	}
	w := anomalyWindow{
		start:      days[0].start,
		end:        days[len(days)-1].end,
		peak:       delta,
		confidence: numeric.Clamp01(math.Abs(delta) / (2 * threshold)),
	}
	return []domainTruth.AnomalyLedgerItem{newItem(domainTruth.AnomalyDrift, w, 1)}
}

func volatilityItems(days []residualDay, opts Options) []domainTruth.AnomalyLedgerItem {
	type daySD struct {
		day residualDay
		sd  float64
	}
	var sds []daySD
	var all []float64
	for _, d := range days {
		if len(d.residuals) < 2 {
			continue
		}
		sd := numeric.StdDev(d.residuals)
		sds = append(sds, daySD{day: d, sd: sd})
		all = append(all, sd)
	}
	if len(sds) < opts.VolatilityMinDays {
		return nil
	}
	limit := math.Max(opts.VolatilityMultiplier*numeric.Median(all), robustScaleFloorKW)

	var flagged []daySD
	for _, s := range sds {
		if s.sd > limit {
			flagged = append(flagged, s)
		}
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].sd != flagged[j].sd {
			return flagged[i].sd > flagged[j].sd
		}
		return flagged[i].day.date < flagged[j].day.date
	})
	if len(flagged) > opts.MaxVolatilityDays {
		flagged = flagged[:opts.MaxVolatilityDays]
	}
	items := make([]domainTruth.AnomalyLedgerItem, 0, len(flagged))
	for i, f := range flagged {
		w := anomalyWindow{
			start:      f.day.start,
			end:        f.day.end,
			peak:       f.sd,
			confidence: numeric.Clamp01(f.sd / (2 * limit)),
		}
		items = append(items, newItem(domainTruth.AnomalyVolatility, w, i+1))
	}
	return items
}

func scheduleItems(residuals []Residual, days []residualDay, opts Options) []domainTruth.AnomalyLedgerItem {
	if len(days) < opts.ScheduleMinDays {
		return nil
	}
	var weekdayRes, weekendRes, weekdayObs []float64
	for _, r := range residuals {
		if r.Obs.IsWeekend() {
			weekendRes = append(weekendRes, r.KW)
			continue
		}
		weekdayRes = append(weekdayRes, r.KW)
		weekdayObs = append(weekdayObs, r.Obs.ObservedKW)
	}
	if len(weekdayRes) == 0 || len(weekendRes) == 0 {
		return nil
	}
	delta := numeric.Mean(weekendRes) - numeric.Mean(weekdayRes)
	threshold := math.Max(opts.ScheduleFloorKW, opts.ScheduleRelative*math.Abs(numeric.Mean(weekdayObs)))
	if math.Abs(delta) <= threshold {
		return nil
	}
	w := anomalyWindow{
		start:      days[0].start,
		end:        days[len(days)-1].end,
		peak:       delta,
		confidence: numeric.Clamp01(math.Abs(delta) / (2 * threshold)),
	}
	return []domainTruth.AnomalyLedgerItem{newItem(domainTruth.AnomalySchedule, w, 1)}
}

func newItem(class domainTruth.AnomalyClass, w anomalyWindow, seq int) domainTruth.AnomalyLedgerItem {
	const idTime = "20060102T1504Z"
	return domainTruth.AnomalyLedgerItem{
		ID: fmt.Sprintf("%s-%s-%s-%02d", class,
			w.start.UTC().Format(idTime), w.end.UTC().Format(idTime), seq),
		WindowStart:      w.start.UTC(),
		WindowEnd:        w.end.UTC(),
		Class:            class,
		MagnitudeKW:      numeric.Round(w.peak, numeric.KWPlaces),
		Confidence:       numeric.Round(w.confidence, numeric.ConfidencePlaces),
		LikelyDrivers:    append([]string(nil), likelyDrivers[class]...),
		RequiredNextData: append([]string(nil), requiredNextData[class]...),
	}
}
