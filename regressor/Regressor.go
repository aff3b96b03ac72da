// Package regressor implements the base classes of regressors: models
// that are fit to predict outputs from inputs, possibly as
// distributions over outputs.
//
// The bases manage a regressor's parameters. Parameters are
// scope.Variables filtered by tags, e.g. {"trainable": true}; lists of
// parameters, along with their dtypes and shapes, are cached per tag
// set. Parameter values can be read and written as a single flat
// vector:
//
//	flat, _ := r.ParamValues(nil)
//	...
//	err := r.SetParamValues(flat, regressor.Tags{"trainable": true})
package regressor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goapprox/scope"
)

// ErrNotImplemented is returned by the operations of the base
// regressors that concrete regressors must provide.
var ErrNotImplemented = errors.New("not implemented")

// Tags filter parameters, see scope.Tags
type Tags = scope.Tags

// Debug is a tag that is removed from the tags given to SetParamValues
// instead of filtering parameters. If true, each assignment is logged.
const Debug = "debug"

// Regressor is a model fit to predict ys from xs. Each row of xs and
// ys is a single sample.
type Regressor interface {
	// Fit fits the regressor to inputs xs and labels ys
	Fit(xs, ys *mat.Dense) error

	// Predict predicts the labels of xs
	Predict(xs *mat.Dense) (*mat.Dense, error)

	Params(tags Tags) ([]*scope.Variable, error)
	ParamDtypes(tags Tags) ([]tensor.Dtype, error)
	ParamShapes(tags Tags) ([]tensor.Shape, error)
	ParamValues(tags Tags) ([]float64, error)
	SetParamValues(flat []float64, tags Tags) error
}

// DistInfo holds the nodes that describe a distribution, keyed by the
// name of the statistic, e.g. "mean" and "log_std".
type DistInfo map[string]*G.Node

// StochasticRegressor is a regressor that predicts a distribution
// over outputs.
type StochasticRegressor interface {
	Regressor

	// LogLikelihoodSym adds the log likelihood of labels y given
	// inputs x to the graph of x and y. The returned node has one
	// entry per row of x.
	LogLikelihoodSym(x, y *G.Node, name string) (*G.Node, error)

	// DistInfoSym adds the distribution over labels given inputs x to
	// the graph of x.
	DistInfoSym(x *G.Node, name string) (DistInfo, error)
}

// ParamSource provides the uncached parameters of a regressor
type ParamSource interface {
	// ParamsInternal returns the parameters matching tags, in a fixed
	// order. It is not cached.
	ParamsInternal(tags Tags) ([]*scope.Variable, error)
}

var (
	_ Regressor           = &Base{}
	_ StochasticRegressor = &StochasticBase{}
	_ Regressor           = &ContinuousMLPRegressor{}
	_ StochasticRegressor = &GaussianMLPRegressor{}
	_ StochasticRegressor = &CategoricalMLPRegressor{}
)
