package regressor

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goapprox/scope"
	"github.com/samuelfneumann/goapprox/solver"
)

// testConfig returns a small, quickly trained configuration
func testConfig(name string) MLPConfig {
	c := DefaultMLPConfig(name)
	c.HiddenSizes = []int{16}
	c.BatchSize = 16
	c.Epochs = 50
	c.Solver = solverMust(solver.NewDefaultAdam(1e-2, 1))
	return c
}

// linearData returns inputs uniform in [-1, 1]^2 with labels
// 2x₀ - x₁ + 3
func linearData(rows int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	xs := mat.NewDense(rows, 2, nil)
	ys := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		x0, x1 := rng.Float64()*2-1, rng.Float64()*2-1
		xs.SetRow(i, []float64{x0, x1})
		ys.Set(i, 0, 2*x0-x1+3)
	}
	return xs, ys
}

func meanSquaredError(t *testing.T, r Regressor, xs, ys *mat.Dense) float64 {
	pred, err := r.Predict(xs)
	require.NoError(t, err)

	var diff mat.Dense
	diff.Sub(pred, ys)
	rows, cols := diff.Dims()
	diff.MulElem(&diff, &diff)
	return mat.Sum(&diff) / float64(rows*cols)
}

func TestContinuousParams(t *testing.T) {
	r, err := NewContinuousMLPRegressor([]int{2}, 1, testConfig("cont"))
	require.NoError(t, err)
	defer r.Close()

	all, err := r.Params(nil)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, "/cont/x_mean", all[0].Path())
	assert.Equal(t, "/cont/mlp/hidden_0/kernel", all[4].Path())
	assert.Equal(t, "/cont", r.Scope().Path())

	trainable, err := r.Params(Tags{scope.Trainable: true})
	require.NoError(t, err)
	assert.Len(t, trainable, 4)

	regularizable, err := r.Params(Tags{scope.Regularizable: true})
	require.NoError(t, err)
	assert.Len(t, regularizable, 2)

	values, err := r.ParamValues(Tags{scope.Trainable: true})
	require.NoError(t, err)
	assert.Len(t, values, 2*16+16+16*1+1)
}

func TestContinuousPredictBatches(t *testing.T) {
	r, err := NewContinuousMLPRegressor([]int{2}, 1, testConfig("cont"))
	require.NoError(t, err)
	defer r.Close()

	// More rows than a batch, with a partial final batch
	xs, _ := linearData(40, 1)
	pred, err := r.Predict(xs)
	require.NoError(t, err)
	rows, cols := pred.Dims()
	assert.Equal(t, 40, rows)
	assert.Equal(t, 1, cols)

	// Padding does not change the prediction of any row
	for _, i := range []int{0, 17, 39} {
		single, err := r.Predict(mat.NewDense(1, 2, xs.RawRowView(i)))
		require.NoError(t, err)
		assert.InDelta(t, pred.At(i, 0), single.At(0, 0), 1e-12)
	}

	_, err = r.Predict(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestContinuousFit(t *testing.T) {
	r, err := NewContinuousMLPRegressor([]int{2}, 1, testConfig("cont"))
	require.NoError(t, err)
	defer r.Close()

	xs, ys := linearData(64, 1)
	before := meanSquaredError(t, r, xs, ys)
	require.NoError(t, r.Fit(xs, ys))
	after := meanSquaredError(t, r, xs, ys)

	assert.Less(t, after, before)
	assert.Greater(t, r.Loss(), 0.0)

	// Normalization statistics are set from the data
	yMean, ok := r.Scope().Store().Lookup("/cont/y_mean")
	require.True(t, ok)
	assert.InDelta(t, mat.Sum(ys)/64, yMean.Data()[0], 1e-9)

	assert.Error(t, r.Fit(xs, mat.NewDense(3, 1, nil)))
	assert.Error(t, r.Fit(xs, mat.NewDense(64, 2, nil)))
}

func TestContinuousSetParamValues(t *testing.T) {
	r, err := NewContinuousMLPRegressor([]int{2}, 1, testConfig("cont"))
	require.NoError(t, err)
	defer r.Close()

	// With all weights zero and output bias b, every prediction is b
	trainable := Tags{scope.Trainable: true}
	values, err := r.ParamValues(trainable)
	require.NoError(t, err)
	for i := range values {
		values[i] = 0
	}
	values[len(values)-1] = 1.5
	require.NoError(t, r.SetParamValues(values, trainable))

	xs, _ := linearData(5, 2)
	pred, err := r.Predict(xs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 1.5, pred.At(i, 0), 1e-12)
	}
}

func TestContinuousGob(t *testing.T) {
	r, err := NewContinuousMLPRegressor([]int{2}, 1, testConfig("cont"))
	require.NoError(t, err)
	defer r.Close()

	xs, ys := linearData(32, 3)
	require.NoError(t, r.Fit(xs, ys))
	want, err := r.Predict(xs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(r))

	var decoded ContinuousMLPRegressor
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	defer decoded.Close()

	assert.Equal(t, "cont", decoded.Name())
	assert.Equal(t, []int{2}, decoded.InputShape())
	assert.Equal(t, r.Config().HiddenSizes, decoded.Config().HiddenSizes)

	got, err := decoded.Predict(xs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawMatrix().Data, got.RawMatrix().Data, 1e-12)
}

func TestContinuousConfigValidation(t *testing.T) {
	c := testConfig("cont")
	c.BatchSize = 0
	_, err := NewContinuousMLPRegressor([]int{2}, 1, c)
	assert.Error(t, err)

	_, err = NewContinuousMLPRegressor(nil, 1, testConfig("cont"))
	assert.Error(t, err)

	_, err = NewContinuousMLPRegressor([]int{2}, 0, testConfig("cont"))
	assert.Error(t, err)
}
