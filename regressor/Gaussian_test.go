package regressor

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goapprox/scope"
)

func gaussianTestConfig(name string) GaussianMLPConfig {
	return GaussianMLPConfig{
		MLPConfig: testConfig(name),
		InitStd:   1.0,
		LearnStd:  true,
	}
}

// zeroTrainable sets all trainable parameters of r to 0
func zeroTrainable(t *testing.T, r Regressor) {
	trainable := Tags{scope.Trainable: true}
	values, err := r.ParamValues(trainable)
	require.NoError(t, err)
	require.NoError(t, r.SetParamValues(make([]float64, len(values)),
		trainable))
}

func TestGaussianParams(t *testing.T) {
	r, err := NewGaussianMLPRegressor([]int{2}, 2, gaussianTestConfig("gauss"))
	require.NoError(t, err)
	defer r.Close()

	logStd, ok := r.Scope().Store().Lookup("/gauss/log_std")
	require.True(t, ok)
	assert.True(t, logStd.Tag(scope.Trainable))
	assert.False(t, logStd.Tag(scope.Regularizable))

	trainable, err := r.Params(Tags{scope.Trainable: true})
	require.NoError(t, err)
	assert.Len(t, trainable, 5)

	c := gaussianTestConfig("fixed")
	c.LearnStd = false
	fixed, err := NewGaussianMLPRegressor([]int{2}, 2, c)
	require.NoError(t, err)
	defer fixed.Close()
	trainable, err = fixed.Params(Tags{scope.Trainable: true})
	require.NoError(t, err)
	assert.Len(t, trainable, 4)
}

func TestGaussianLogLikelihoodSym(t *testing.T) {
	r, err := NewGaussianMLPRegressor([]int{2}, 2, gaussianTestConfig("gauss"))
	require.NoError(t, err)
	defer r.Close()
	zeroTrainable(t, r)

	g := G.NewGraph()
	x := G.NewMatrix(g, tensor.Float64, G.WithShape(3, 2), G.WithName("x"),
		G.WithInit(G.Ones()))
	y := G.NewMatrix(g, tensor.Float64, G.WithShape(3, 2), G.WithName("y"),
		G.WithValue(tensor.New(tensor.WithShape(3, 2),
			tensor.WithBacking([]float64{0, 0, 1, 0, 1, 1}))))

	info, err := r.DistInfoSym(x, "dist")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, info["mean"].Shape())
	assert.Equal(t, tensor.Shape{3, 2}, info["log_std"].Shape())

	ll, err := r.LogLikelihoodSym(x, y, "ll")
	require.NoError(t, err)
	var llVal G.Value
	G.Read(ll, &llVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	// Standard normal in two dimensions
	norm := -math.Log(2 * math.Pi)
	assert.InDeltaSlice(t, []float64{norm, norm - 0.5, norm - 1},
		llVal.Data(), 1e-9)

	_, err = r.DistInfoSym(x, "dist")
	assert.Error(t, err, "network names must be unique")
	_, err = r.DistInfoSym(x, "")
	assert.Error(t, err)
}

func TestGaussianFit(t *testing.T) {
	c := gaussianTestConfig("gauss")
	c.NormalizeOutputs = false
	c.LearnStd = false
	c.InitStd = 0.5
	r, err := NewGaussianMLPRegressor([]int{2}, 1, c)
	require.NoError(t, err)
	defer r.Close()

	xs, ys := linearData(64, 4)
	before := meanSquaredError(t, r, xs, ys)
	require.NoError(t, r.Fit(xs, ys))
	after := meanSquaredError(t, r, xs, ys)
	assert.Less(t, after, before)

	// The standard deviation is not learned
	assert.InDeltaSlice(t, []float64{0.5}, r.Std(), 1e-12)
}

func TestGaussianSample(t *testing.T) {
	c := gaussianTestConfig("gauss")
	c.InitStd = 1e-6
	r, err := NewGaussianMLPRegressor([]int{2}, 2, c)
	require.NoError(t, err)
	defer r.Close()

	xs, _ := linearData(10, 5)
	mean, err := r.Predict(xs)
	require.NoError(t, err)
	samples, err := r.Sample(xs)
	require.NoError(t, err)

	rows, cols := samples.Dims()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 2, cols)
	assert.True(t, mat.EqualApprox(mean, samples, 1e-3))
}

func TestGaussianGob(t *testing.T) {
	c := gaussianTestConfig("gauss")
	c.InitStd = 2
	r, err := NewGaussianMLPRegressor([]int{2}, 1, c)
	require.NoError(t, err)
	defer r.Close()

	xs, ys := linearData(32, 6)
	require.NoError(t, r.Fit(xs, ys))
	want, err := r.Predict(xs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(r))
	var decoded GaussianMLPRegressor
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	defer decoded.Close()

	assert.Equal(t, 2.0, decoded.Config().InitStd)
	assert.True(t, decoded.Config().LearnStd)
	assert.InDeltaSlice(t, r.Std(), decoded.Std(), 1e-12)

	got, err := decoded.Predict(xs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawMatrix().Data, got.RawMatrix().Data, 1e-12)
}

func TestGaussianConfigValidation(t *testing.T) {
	c := gaussianTestConfig("gauss")
	c.InitStd = 0
	_, err := NewGaussianMLPRegressor([]int{2}, 1, c)
	assert.Error(t, err)
}

func TestGaussianDistInfoAfterFit(t *testing.T) {
	c := gaussianTestConfig("gauss")
	c.NormalizeOutputs = true
	c.LearnStd = false
	c.InitStd = 0.5
	c.Epochs = 1
	r, err := NewGaussianMLPRegressor([]int{2}, 1, c)
	require.NoError(t, err)
	defer r.Close()

	xs, ys := linearData(20, 7)
	require.NoError(t, r.Fit(xs, ys))

	// The log standard deviation is repeated for every row of x and
	// is in the space of the labels
	g := G.NewGraph()
	x := G.NewMatrix(g, tensor.Float64, G.WithShape(4, 2), G.WithName("x"),
		G.WithInit(G.Ones()))
	info, err := r.DistInfoSym(x, "dist")
	require.NoError(t, err)
	var logStd G.Value
	G.Read(info["log_std"], &logStd)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	want := math.Log(r.Std()[0])
	assert.Equal(t, tensor.Shape{4, 1}, logStd.Shape())
	assert.InDeltaSlice(t, []float64{want, want, want, want}, logStd.Data(),
		1e-9)
	assert.NotEqual(t, math.Log(0.5), want)
}
