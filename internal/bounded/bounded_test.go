package bounded

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrings(t *testing.T) {
	got := Strings([]string{"b", " a", "", "b", "c"}, 2)
	assert.Equal(t, []string{"a", "b"}, got)

	assert.NotNil(t, Strings(nil, 5))
	assert.Empty(t, Strings([]string{"x"}, 0))
}

func TestOrdered(t *testing.T) {
	assert.Equal(t, []string{"z", "a"}, Ordered([]string{"z", "a", "z", "m"}, 2))
}

func TestTake(t *testing.T) {
	xs := []int{1, 2, 3}
	got := Take(xs, 2)
	assert.Equal(t, []int{1, 2}, got)
	got[0] = 9
	assert.Equal(t, 1, xs[0], "Take must copy")
	assert.Equal(t, []int{}, Take([]int(nil), 4))
}
