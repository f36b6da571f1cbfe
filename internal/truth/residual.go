package truth

import (
	"math"
	"sort"

	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal/numeric"
)

// Residual is observed minus expected for one hourly bin.
type Residual struct {
	Obs        domainTruth.HourlyObservation
	ExpectedKW float64
	KW         float64
}

// ComputeResiduals pairs each observation with the model expectation,
// skipping bins the model cannot explain. Order follows obs.
func ComputeResiduals(obs []domainTruth.HourlyObservation, model *domainTruth.BaselineModel) []Residual {
	out := make([]Residual, 0, len(obs))
	for _, o := range obs {
		e, ok := model.Expected(o)
		if !ok {
			continue
		}
		out = append(out, Residual{Obs: o, ExpectedKW: e, KW: o.ObservedKW - e})
	}
	return out
}

// BuildResidualMap accumulates the 7x24 mean residual grid and ranks the
// populated cells by |mean| desc, mean desc, samples desc, day asc, hour asc.
func BuildResidualMap(residuals []Residual, maxPeakCells int) domainTruth.ResidualMap {
	var sums [7][24]float64
	var counts [7][24]int
	for _, r := range residuals {
		d, h := r.Obs.DayOfWeek, r.Obs.Hour
		if d < 0 || d > 6 || h < 0 || h > 23 {
			continue
		}
		sums[d][h] += r.KW
		counts[d][h]++
	}

	var rm domainTruth.ResidualMap
	cells := make([]domainTruth.ResidualCell, 0, 7*24)
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			rm.Counts[d][h] = counts[d][h]
			if counts[d][h] == 0 {
				continue
			}
			mean := sums[d][h] / float64(counts[d][h])
			rm.MeanKW[d][h] = numeric.Round(mean, numeric.KWPlaces)
			cells = append(cells, domainTruth.ResidualCell{
				DayOfWeek:      d,
				Hour:           h,
				MeanResidualKW: mean,
				Samples:        counts[d][h],
			})
		}
	}

	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if math.Abs(a.MeanResidualKW) != math.Abs(b.MeanResidualKW) {
			return math.Abs(a.MeanResidualKW) > math.Abs(b.MeanResidualKW)
		}
		if a.MeanResidualKW != b.MeanResidualKW {
			return a.MeanResidualKW > b.MeanResidualKW
		}
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.Hour < b.Hour
	})
	if len(cells) > maxPeakCells {
		cells = cells[:maxPeakCells]
	}
	for i := range cells {
		cells[i].MeanResidualKW = numeric.Round(cells[i].MeanResidualKW, numeric.KWPlaces)
	}
	rm.PeakCells = cells
	return rm
}
