package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFlatDim(t *testing.T) {
	actions, err := NewDiscrete(Action, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, actions.FlatDim())

	obs, err := NewBox(Observation, 4, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, obs.FlatDim())
	assert.Equal(t, 4, obs.Dims())
}

func TestNewSpecBounds(t *testing.T) {
	shape := mat.NewVecDense(2, []float64{1, 1})
	_, err := NewSpec(shape, Observation, mat.NewVecDense(1, nil),
		mat.NewVecDense(2, nil), Continuous)
	assert.Error(t, err)

	_, err = NewSpec(shape, Observation, mat.NewVecDense(2, []float64{0, 1}),
		mat.NewVecDense(2, []float64{1, 0}), Continuous)
	assert.Error(t, err)

	_, err = NewDiscrete(Action, 0)
	assert.Error(t, err)
}

func TestNewEnvSpec(t *testing.T) {
	obs, _ := NewBox(Observation, 2, 0, 1)
	actions, _ := NewDiscrete(Action, 2)

	_, err := NewEnvSpec(actions, obs)
	assert.Error(t, err)

	e, err := NewEnvSpec(obs, actions)
	require.NoError(t, err)
	assert.Equal(t, 2, SpecOf(e).ActionSpec().FlatDim())
}
