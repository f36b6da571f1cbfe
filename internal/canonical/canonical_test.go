package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Zeta  int               `json:"zeta"`
	Alpha string            `json:"alpha"`
	Inner map[string]any    `json:"inner"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func TestMarshalSortsKeys(t *testing.T) {
	out, err := Marshal(sample{Zeta: 1, Alpha: "a", Inner: map[string]any{"b": 1.5, "a": nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","inner":{"a":null,"b":1.5},"zeta":1}`, string(out))
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint(map[string]int{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]int{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
}
