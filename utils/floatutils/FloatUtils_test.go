package floatutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgMax(t *testing.T) {
	assert.Equal(t, []int{2, 0}, ArgMax([]float64{0, 1, 2, 4, 4, 1}, 3))
	assert.Equal(t, []int{1}, ArgMax([]float64{1, 3, 2, 3}, 4))
	assert.Empty(t, ArgMax(nil, 2))
}
