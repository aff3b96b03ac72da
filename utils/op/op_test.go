package op

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func matrix(g *G.ExprGraph, name string, rows, cols int,
	data []float64) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName(name), G.WithValue(tensor.New(
			tensor.WithShape(rows, cols), tensor.WithBacking(data))))
}

func run(t *testing.T, g *G.ExprGraph) {
	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())
}

func TestDiagGaussianLogLikelihood(t *testing.T) {
	g := G.NewGraph()
	x := matrix(g, "x", 2, 2, []float64{0, 0, 1, 2})
	mean := matrix(g, "mean", 2, 2, []float64{0, 0, 0, 0})
	logStd := matrix(g, "logStd", 2, 2, []float64{0, 0, 0, math.Log(2)})

	ll, err := DiagGaussianLogLikelihood(x, mean, logStd)
	require.NoError(t, err)
	var llVal G.Value
	G.Read(ll, &llVal)
	run(t, g)

	c := -math.Log(2 * math.Pi)
	want := []float64{
		c,
		c - 0.5*(1+1) - math.Log(2),
	}
	assert.InDeltaSlice(t, want, llVal.Data(), 1e-9)
}

func TestDiagGaussianLogLikelihoodShapes(t *testing.T) {
	g := G.NewGraph()
	x := matrix(g, "x", 1, 2, []float64{0, 0})
	mean := matrix(g, "mean", 2, 1, []float64{0, 0})
	_, err := DiagGaussianLogLikelihood(x, mean, mean)
	assert.Error(t, err)
}

func TestCategoricalLogLikelihood(t *testing.T) {
	g := G.NewGraph()
	logits := matrix(g, "logits", 2, 2, []float64{0, 0, math.Log(3), 0})
	labels := matrix(g, "labels", 2, 2, []float64{1, 0, 1, 0})

	ll, err := CategoricalLogLikelihood(labels, logits)
	require.NoError(t, err)
	var llVal G.Value
	G.Read(ll, &llVal)
	run(t, g)

	assert.InDeltaSlice(t, []float64{math.Log(0.5), math.Log(0.75)},
		llVal.Data(), 1e-9)
}
