// Package op provides extended Gorgonia graph operations.
package op

import (
	"math"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// scalar returns a constant scalar node with the dtype dt
func scalar(dt tensor.Dtype, v float64) *G.Node {
	if dt == tensor.Float32 {
		return G.NewConstant(float32(v))
	}
	return G.NewConstant(v)
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns the log of the softmax of a matrix of logits
// along its rows.
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, errors.Errorf("logSoftmax: logits must be a matrix, "+
			"got shape %v", logits.Shape())
	}
	return G.BroadcastSub(logits, LogSumExp(logits, 1), nil, []byte{1})
}

// DiagGaussianLogLikelihood calculates the log of the probability
// density function of x under diagonal Gaussian distributions with
// mean mean and log standard deviation logStd.
//
// All arguments should be two-dimensional and of the same size m x n.
// The rows (m) denote the samples in the batch and the columns (n)
// the dimensions of each sample. Row i of mean and logStd describes
// the distribution of row i of x. The returned node is a vector of m
// log densities.
func DiagGaussianLogLikelihood(x, mean, logStd *G.Node) (*G.Node, error) {
	graph := x.Graph()
	if graph != mean.Graph() || graph != logStd.Graph() {
		return nil, errors.New("diagGaussianLogLikelihood: all nodes must " +
			"share the same graph")
	}
	if !x.Shape().Eq(mean.Shape()) || !x.Shape().Eq(logStd.Shape()) {
		return nil, errors.Errorf("diagGaussianLogLikelihood: shapes "+
			"must match, got %v, %v, and %v", x.Shape(), mean.Shape(),
			logStd.Shape())
	}
	if !x.IsMatrix() {
		return nil, errors.Errorf("diagGaussianLogLikelihood: inputs "+
			"must be matrices, got shape %v", x.Shape())
	}
	dt := x.Dtype()
	dims := float64(x.Shape()[1])

	// Calculate (-1/2) * (x - μ)^T σ^(-2) (x - μ). Since σ is diagonal
	// this is a sum of squared standardized differences.
	diff := G.Must(G.Sub(x, mean))
	z := G.Must(G.HadamardDiv(diff, G.Must(G.Exp(logStd))))
	exponent := G.Must(G.Sum(G.Must(G.Square(z)), 1))
	exponent = G.Must(G.Mul(exponent, scalar(dt, -0.5)))

	// Normalizing constant: -log(det(σ)) - (n/2) log(2π)
	logDet := G.Must(G.Sum(logStd, 1))
	norm := G.Must(G.Add(logDet, scalar(dt, (dims/2)*math.Log(2*math.Pi))))

	return G.Sub(exponent, norm)
}

// CategoricalLogLikelihood calculates the log probability of one-hot
// labels under the categorical distributions with the given logits.
// Both arguments are m x n matrices, and the returned node is a vector
// of m log probabilities.
func CategoricalLogLikelihood(oneHot, logits *G.Node) (*G.Node, error) {
	if !oneHot.Shape().Eq(logits.Shape()) {
		return nil, errors.Errorf("categoricalLogLikelihood: shapes must "+
			"match, got %v and %v", oneHot.Shape(), logits.Shape())
	}
	logProb, err := LogSoftmax(logits)
	if err != nil {
		return nil, err
	}
	return G.Sum(G.Must(G.HadamardProd(oneHot, logProb)), 1)
}
