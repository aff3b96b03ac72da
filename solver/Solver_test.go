package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolverJSON(t *testing.T) {
	adam, err := NewDefaultAdam(0.01, 32)
	require.NoError(t, err)
	rms, err := NewDefaultRMSProp(0.01, 16)
	require.NoError(t, err)
	vanilla, err := NewVanilla(0.1, 1, 5)
	require.NoError(t, err)

	for _, s := range []*Solver{adam, rms, vanilla} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded Solver
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, s.Type, decoded.Type)
		assert.Equal(t, s.Config, decoded.Config)
		assert.NotNil(t, decoded.Solver)
	}
}

func TestSolverValidate(t *testing.T) {
	_, err := NewDefaultAdam(0, 1)
	assert.Error(t, err)
	_, err = NewAdam(0.1, 1e-8, 1.5, 0.9, 1)
	assert.Error(t, err)
	_, err = NewVanilla(0.1, 0, 0)
	assert.Error(t, err)

	var s Solver
	err = json.Unmarshal([]byte(`{"Type": "SGD", "Config": {}}`), &s)
	assert.Error(t, err)
}

func TestNewIsIndependent(t *testing.T) {
	adam, err := NewDefaultAdam(0.01, 1)
	require.NoError(t, err)
	assert.NotSame(t, adam.New(), adam.New())
}
