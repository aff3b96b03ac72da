package regressor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/goapprox/utils/floatutils"
	"github.com/samuelfneumann/goapprox/utils/op"
)

// CategoricalMLPRegressor predicts categorical distributions over
// classes. Labels are one-hot rows, and the MLP computes the logits of
// each class. Training maximizes the log likelihood of the labels.
//
// Outputs are never normalized.
type CategoricalMLPRegressor struct {
	*StochasticBase
	m *mlpRegressor
}

// NewCategoricalMLPRegressor returns a new CategoricalMLPRegressor
// over the given number of classes
func NewCategoricalMLPRegressor(inputShape []int, classes int,
	c MLPConfig) (*CategoricalMLPRegressor, error) {
	c.NormalizeOutputs = false
	inputDim, err := flatDim(inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLPRegressor")
	}
	if classes < 2 {
		return nil, errors.Errorf("newCategoricalMLPRegressor: need at "+
			"least 2 classes, got %v", classes)
	}
	m, err := newMLPRegressor(inputDim, classes, classes, c)
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLPRegressor")
	}

	r := &CategoricalMLPRegressor{
		StochasticBase: NewStochasticBase(inputShape, classes, c.Name, m),
		m:              m,
	}
	r.SetScope(m.scope)

	if err := m.initPredict(m.network); err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLPRegressor")
	}
	return r, nil
}

// Config returns the configuration of the regressor
func (r *CategoricalMLPRegressor) Config() MLPConfig {
	return r.m.config
}

// DistInfoSym adds the distribution over classes given inputs x to x's
// graph. The returned DistInfo holds the probabilities "prob" of each
// class, with one row per row of x.
func (r *CategoricalMLPRegressor) DistInfoSym(x *G.Node,
	name string) (DistInfo, error) {
	if name == "" {
		return nil, errors.New("distInfoSym: name must not be empty")
	}
	logits, err := r.m.network(x, name)
	if err != nil {
		return nil, errors.Wrap(err, "distInfoSym")
	}
	prob, err := G.SoftMax(logits, 1)
	if err != nil {
		return nil, errors.Wrap(err, "distInfoSym")
	}
	return DistInfo{"prob": prob}, nil
}

// LogLikelihoodSym adds the log probability of each one-hot row of y
// given the corresponding row of x to the graph of x and y
func (r *CategoricalMLPRegressor) LogLikelihoodSym(x, y *G.Node,
	name string) (*G.Node, error) {
	if name == "" {
		return nil, errors.New("logLikelihoodSym: name must not be empty")
	}
	logits, err := r.m.network(x, name)
	if err != nil {
		return nil, errors.Wrap(err, "logLikelihoodSym")
	}
	return op.CategoricalLogLikelihood(y, logits)
}

// loss adds the negative mean log likelihood of y given x to their
// graph
func (r *CategoricalMLPRegressor) loss(x, y *G.Node) (*G.Node, error) {
	logits, err := r.m.network(x, "train")
	if err != nil {
		return nil, err
	}
	ll, err := op.CategoricalLogLikelihood(y, logits)
	if err != nil {
		return nil, err
	}
	meanLL, err := G.Mean(ll)
	if err != nil {
		return nil, err
	}
	return G.Neg(meanLL)
}

// Fit fits the regressor to inputs xs and one-hot labels ys
func (r *CategoricalMLPRegressor) Fit(xs, ys *mat.Dense) error {
	return r.m.fit(xs, ys, r.outputDim, r.loss)
}

// Logits returns the logits of each class for each row of xs
func (r *CategoricalMLPRegressor) Logits(xs *mat.Dense) (*mat.Dense, error) {
	return r.m.predictRows(xs)
}

// Predict returns the one-hot encoding of the most likely class of
// each row of xs. Ties are broken by the lowest class index.
func (r *CategoricalMLPRegressor) Predict(xs *mat.Dense) (*mat.Dense,
	error) {
	logits, err := r.Logits(xs)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	rows, cols := logits.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i, class := range floatutils.ArgMax(logits.RawMatrix().Data, cols) {
		out.Set(i, class, 1.0)
	}
	return out, nil
}

// Loss returns the loss of the most recent training batch
func (r *CategoricalMLPRegressor) Loss() float64 {
	return r.m.Loss()
}

// Close releases the regressor's VMs
func (r *CategoricalMLPRegressor) Close() error {
	return r.m.Close()
}

// GobEncode implements the gob.GobEncoder interface
func (r *CategoricalMLPRegressor) GobEncode() ([]byte, error) {
	return encodeMLP(r.Base, r.m.config, r.m)
}

// GobDecode implements the gob.GobDecoder interface. The regressor is
// rebuilt from the encoded configuration and its parameters restored.
func (r *CategoricalMLPRegressor) GobDecode(in []byte) error {
	var c MLPConfig
	state, err := decodeMLP(in, &c)
	if err != nil {
		return err
	}

	var base Base
	if err := base.GobDecode(state.Base); err != nil {
		return err
	}
	fresh, err := NewCategoricalMLPRegressor(base.inputShape,
		state.OutputDim, c)
	if err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	if err := restore(fresh.Base, state); err != nil {
		return errors.Wrap(err, "gobdecode")
	}

	*r = *fresh
	return nil
}
