// Package numeric holds the rounding, clamping and summary-statistic helpers
// used at every value that crosses the stable-output boundary.
package numeric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Decimal places used for emitted values.
const (
	KWPlaces         = 3
	USDPlaces        = 2
	ConfidencePlaces = 3
	RatioPlaces      = 4
)

// Round rounds half away from zero to the given number of decimals and
// normalizes negative zero. Non-finite inputs become 0.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

// RoundPtr rounds a present value and passes nil through.
func RoundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, places)
	return &r
}

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 {
	return &v
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Mean is the arithmetic mean; 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev is the sample standard deviation; 0 with fewer than two values.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Quantile returns the linearly interpolated p-quantile (0..1). The input is
// not modified.
func Quantile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(Clamp01(p), stat.LinInterp, sorted, nil)
}

// Median returns the median; 0 for an empty slice.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m, err := stats.Median(xs)
	if err != nil {
		return 0
	}
	return m
}

// MADScale converts a median absolute deviation to a normal-equivalent sigma.
const MADScale = 1.4826

// RobustSigma is MAD x 1.4826; 0 for an empty slice.
func RobustSigma(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mad, err := stats.MedianAbsoluteDeviation(xs)
	if err != nil {
		return 0
	}
	return mad * MADScale
}
