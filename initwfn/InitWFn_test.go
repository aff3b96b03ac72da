package initwfn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestJSONRoundTrip(t *testing.T) {
	inits := []*InitWFn{
		Must(NewGlorotU(1.0)),
		Must(NewHeN(2.0)),
		Must(NewZeroes()),
		Must(NewConstant(0.5)),
		Must(NewUniform(-1, 1, 7)),
	}

	for _, init := range inits {
		data, err := json.Marshal(init)
		require.NoError(t, err)

		var decoded InitWFn
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, init.Type, decoded.Type)
		assert.Equal(t, init.Config, decoded.Config)
		assert.NotNil(t, decoded.InitWFn())
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	var i InitWFn
	err := json.Unmarshal([]byte(`{"Type": "Bogus", "Config": {}}`), &i)
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewGlorotU(0)
	assert.Error(t, err)

	_, err = NewUniform(1, -1, 0)
	assert.Error(t, err)

	var i InitWFn
	err = json.Unmarshal([]byte(`{"Type": "HeU", "Config": {"Gain": -1}}`), &i)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	c := Must(NewConstant(3))
	v := c.Fill(tensor.Float64, 2, 3)
	assert.Equal(t, tensor.Shape{2, 3}, v.Shape())
	for _, x := range v.Data().([]float64) {
		assert.Equal(t, 3.0, x)
	}
}

func TestSeeded(t *testing.T) {
	for _, newInit := range []func(seed int64) (*InitWFn, error){
		func(seed int64) (*InitWFn, error) { return NewUniform(-1, 1, seed) },
		func(seed int64) (*InitWFn, error) { return NewGaussian(0, 1, seed) },
	} {
		a := Must(newInit(42)).Fill(tensor.Float64, 3, 4)
		b := Must(newInit(42)).Fill(tensor.Float64, 3, 4)
		assert.Equal(t, a.Data(), b.Data())

		other := Must(newInit(43)).Fill(tensor.Float64, 3, 4)
		assert.NotEqual(t, a.Data(), other.Data())

		// Successive fills continue the stream
		init := Must(newInit(42))
		first := init.Fill(tensor.Float32, 2, 2)
		second := init.Fill(tensor.Float32, 2, 2)
		assert.NotEqual(t, first.Data(), second.Data())
	}

	for _, x := range Must(NewUniform(2, 3, 1)).Fill(tensor.Float64,
		10).Data().([]float64) {
		assert.True(t, x >= 2 && x <= 3, x)
	}
}
