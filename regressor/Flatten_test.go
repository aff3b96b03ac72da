package regressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestFlattenTensors(t *testing.T) {
	values := []tensor.Tensor{
		tensor.New(tensor.WithShape(2, 2),
			tensor.WithBacking([]float64{1, 2, 3, 4})),
		tensor.New(tensor.WithShape(1, 2),
			tensor.WithBacking([]float32{5, 6})),
		tensor.New(tensor.FromScalar(7.0)),
	}
	flat, err := FlattenTensors(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, flat)

	flat, err = FlattenTensors(nil)
	require.NoError(t, err)
	assert.Empty(t, flat)
}

func TestFlattenTensorsUnsupportedDtype(t *testing.T) {
	values := []tensor.Tensor{
		tensor.New(tensor.WithShape(1, 2),
			tensor.WithBacking([]float64{1, 2})),
		tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]int{3, 4})),
	}
	_, err := FlattenTensors(values)
	assert.Error(t, err)
}

func TestUnflattenTensors(t *testing.T) {
	shapes := []tensor.Shape{{2, 2}, {1, 3}}
	flat := []float64{1, 2, 3, 4, 5, 6, 7}

	out, err := UnflattenTensors(flat, shapes)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, tensor.Shape{2, 2}, out[0].Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, out[0].Data())
	assert.Equal(t, []float64{5, 6, 7}, out[1].Data())

	// Outputs do not alias the input
	flat[0] = 100
	assert.Equal(t, 1.0, out[0].Data().([]float64)[0])

	_, err = UnflattenTensors(flat[:6], shapes)
	assert.Error(t, err)
}
