package regressor

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// StochasticBase is the base of regressors that predict distributions.
// LogLikelihoodSym and DistInfoSym return ErrNotImplemented.
type StochasticBase struct {
	*Base
}

// NewStochasticBase returns a new StochasticBase
func NewStochasticBase(inputShape []int, outputDim int, name string,
	source ParamSource) *StochasticBase {
	return &StochasticBase{NewBase(inputShape, outputDim, name, source)}
}

// LogLikelihoodSym must be provided by concrete regressors
func (s *StochasticBase) LogLikelihoodSym(x, y *G.Node, name string) (*G.Node,
	error) {
	return nil, errors.Wrap(ErrNotImplemented, "logLikelihoodSym")
}

// DistInfoSym must be provided by concrete regressors
func (s *StochasticBase) DistInfoSym(x *G.Node, name string) (DistInfo,
	error) {
	return nil, errors.Wrap(ErrNotImplemented, "distInfoSym")
}
