package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		places int
		want   float64
	}{
		{"rounds up", 1.2346, 3, 1.235},
		{"half away from zero", 2.5, 0, 3},
		{"negative", -1.2345, 2, -1.23},
		{"negative zero", -0.0001, 2, 0},
		{"nan", math.NaN(), 2, 0},
		{"inf", math.Inf(1), 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(tt.in, tt.places)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.Signbit(got) && got == 0, "negative zero leaked")
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-2))
	assert.Equal(t, 1.0, Clamp01(7))
	assert.Equal(t, 0.25, Clamp01(0.25))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestQuantileDoesNotMutate(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3}
	assert.InDelta(t, 1.0, Quantile(xs, 0), 1e-9)
	assert.InDelta(t, 5.0, Quantile(xs, 1), 1e-9)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, xs)
}

func TestRobustSigma(t *testing.T) {
	xs := []float64{1, 1, 2, 2, 4, 6, 9}
	// median 2, absolute deviations 1,1,0,0,2,4,7 -> MAD 1
	assert.InDelta(t, MADScale, RobustSigma(xs), 1e-9)
	assert.Equal(t, 0.0, RobustSigma(nil))
}

func TestRoundPtr(t *testing.T) {
	assert.Nil(t, RoundPtr(nil, 2))
	assert.Equal(t, 1.5, *RoundPtr(Ptr(1.499), 2))
}
