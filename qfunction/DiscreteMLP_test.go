package qfunction

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/goapprox/environment"
	"github.com/samuelfneumann/goapprox/initwfn"
	"github.com/samuelfneumann/goapprox/regressor"
	"github.com/samuelfneumann/goapprox/scope"
)

// testEnv has 3 observation features and 4 actions
func testEnv(t *testing.T) env.EnvSpec {
	obs, err := env.NewBox(env.Observation, 3, -1, 1)
	require.NoError(t, err)
	action, err := env.NewDiscrete(env.Action, 4)
	require.NoError(t, err)
	e, err := env.NewEnvSpec(obs, action)
	require.NoError(t, err)
	return e
}

// onesConfig returns a config whose weights are all 1 and biases all 0
func onesConfig(hidden ...int) Config {
	c := DefaultConfig()
	c.HiddenSizes = hidden
	c.HiddenWInit = initwfn.Must(initwfn.NewOnes())
	c.OutputWInit = initwfn.Must(initwfn.NewOnes())
	return c
}

func TestNewDiscreteMLP(t *testing.T) {
	q, err := NewDiscreteMLP(testEnv(t), DefaultConfig())
	require.NoError(t, err)
	defer q.Close()

	assert.Equal(t, tensor.Shape{1, 3}, q.Input().Shape())
	assert.Equal(t, tensor.Shape{1, 4}, q.QVals().Shape())
	assert.Equal(t, q.Graph(), q.QVals().Graph())
	assert.Equal(t, 4, q.Actions())
	assert.Equal(t, 3, q.ObservationDim())

	params, err := q.Params(nil)
	require.NoError(t, err)
	require.Len(t, params, 6)
	assert.Equal(t, "/discrete_mlp_q_function/mlp/hidden_0/kernel",
		params[0].Path())
	assert.Equal(t, tensor.Shape{32, 4}, params[4].Shape())

	regularizable, err := q.Params(regressor.Tags{scope.Regularizable: true})
	require.NoError(t, err)
	assert.Len(t, regularizable, 3)
}

func TestNewDiscreteMLPErrors(t *testing.T) {
	obs, err := env.NewBox(env.Observation, 3, -1, 1)
	require.NoError(t, err)
	action, err := env.NewBox(env.Action, 2, -1, 1)
	require.NoError(t, err)
	continuous, err := env.NewEnvSpec(obs, action)
	require.NoError(t, err)

	_, err = NewDiscreteMLP(continuous, DefaultConfig())
	assert.Error(t, err)

	c := DefaultConfig()
	c.Batch = 0
	_, err = NewDiscreteMLP(testEnv(t), c)
	assert.Error(t, err)

	c = DefaultConfig()
	c.Name = "a/b"
	_, err = NewDiscreteMLP(testEnv(t), c)
	assert.Error(t, err)
}

func TestDiscreteMLPPredict(t *testing.T) {
	q, err := NewDiscreteMLP(testEnv(t), onesConfig(2))
	require.NoError(t, err)
	defer q.Close()

	// hidden = relu([1 1 1]·1) = [3 3], q-values = [6 6 6 6]
	qvals, err := q.Predict([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 6, 6}, qvals)

	actions, err := q.GreedyActions([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, actions)

	// Make the third action best
	values, err := q.ParamValues(nil)
	require.NoError(t, err)
	values[len(values)-2] = 1
	require.NoError(t, q.SetParamValues(values, nil))

	qvals, err = q.Predict([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 7, 6}, qvals)
	actions, err = q.GreedyActions([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, actions)

	_, err = q.Predict([]float64{1, 1})
	assert.Error(t, err)
}

func TestDiscreteMLPQValSym(t *testing.T) {
	q, err := NewDiscreteMLP(testEnv(t), onesConfig(2))
	require.NoError(t, err)
	defer q.Close()

	g := G.NewGraph()
	states := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("states"), G.WithValue(tensor.New(tensor.WithShape(2, 3),
			tensor.WithBacking([]float64{1, 1, 1, 1, 2, 3}))))
	qvals, err := q.QValSym(states, "next")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, qvals.Shape())

	// No new parameters are created
	params, err := q.Params(nil)
	require.NoError(t, err)
	assert.Len(t, params, 4)
	assert.Len(t, q.Networks(), 2)

	var out G.Value
	G.Read(qvals, &out)
	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())
	assert.Equal(t, []float64{6, 6, 6, 6, 12, 12, 12, 12}, out.Data())

	_, err = q.QValSym(states, "next")
	assert.Error(t, err)
	_, err = q.QValSym(states, "")
	assert.Error(t, err)
}

func TestDiscreteMLPClone(t *testing.T) {
	q, err := NewDiscreteMLP(testEnv(t), DefaultConfig())
	require.NoError(t, err)
	defer q.Close()

	clone, err := q.Clone(5)
	require.NoError(t, err)
	defer clone.Close()
	assert.Equal(t, 5, clone.BatchSize())
	assert.Equal(t, tensor.Shape{5, 3}, clone.Input().Shape())

	want, err := q.ParamValues(nil)
	require.NoError(t, err)
	got, err := clone.ParamValues(nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Parameters are not shared
	require.NoError(t, clone.SetParamValues(make([]float64, len(got)), nil))
	after, err := q.ParamValues(nil)
	require.NoError(t, err)
	assert.Equal(t, want, after)
}

func TestDiscreteMLPGob(t *testing.T) {
	q, err := NewDiscreteMLP(testEnv(t), DefaultConfig())
	require.NoError(t, err)
	defer q.Close()

	obs := []float64{0.1, -0.5, 0.9}
	want, err := q.Predict(obs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(q))
	var decoded DiscreteMLP
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	defer decoded.Close()

	assert.Equal(t, q.Name(), decoded.Name())
	got, err := decoded.Predict(obs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)

	// The decoded parameter cache reads the decoded parameters
	require.NoError(t, decoded.SetParamValues(make([]float64, 3*32+32+
		32*32+32+32*4+4), nil))
	got, err = decoded.Predict(obs)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, got)
}

func TestConfigJSON(t *testing.T) {
	c := DefaultConfig()
	c.LayerNormalization = true
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())
	assert.Equal(t, c.Name, decoded.Name)
	assert.Equal(t, c.HiddenSizes, decoded.HiddenSizes)
	assert.True(t, decoded.LayerNormalization)
	assert.Equal(t, "relu", decoded.HiddenActivation.String())
	assert.Equal(t, c.HiddenWInit.String(), decoded.HiddenWInit.String())
}
