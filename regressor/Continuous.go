package regressor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// ContinuousMLPRegressor fits an MLP to continuous labels by
// minimizing the mean squared error of its predictions.
type ContinuousMLPRegressor struct {
	*Base
	m *mlpRegressor
}

// NewContinuousMLPRegressor returns a new ContinuousMLPRegressor. Each
// input is flattened, so inputShape may have any number of dimensions.
func NewContinuousMLPRegressor(inputShape []int, outputDim int,
	c MLPConfig) (*ContinuousMLPRegressor, error) {
	inputDim, err := flatDim(inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "newContinuousMLPRegressor")
	}
	m, err := newMLPRegressor(inputDim, outputDim, outputDim, c)
	if err != nil {
		return nil, errors.Wrap(err, "newContinuousMLPRegressor")
	}

	r := &ContinuousMLPRegressor{
		Base: NewBase(inputShape, outputDim, c.Name, m),
		m:    m,
	}
	r.SetScope(m.scope)

	if err := m.initPredict(r.predictSym); err != nil {
		return nil, errors.Wrap(err, "newContinuousMLPRegressor")
	}
	return r, nil
}

// flatDim returns the number of elements in a single input of shape
func flatDim(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("input shape must not be empty")
	}
	size := 1
	for _, d := range shape {
		if d < 1 {
			return 0, errors.Errorf("input shape must be positive, got %v",
				shape)
		}
		size *= d
	}
	return size, nil
}

// Config returns the configuration of the regressor
func (r *ContinuousMLPRegressor) Config() MLPConfig {
	return r.m.config
}

// predictSym adds the denormalized predictions on x to x's graph
func (r *ContinuousMLPRegressor) predictSym(x *G.Node,
	name string) (*G.Node, error) {
	out, err := r.m.network(x, name)
	if err != nil {
		return nil, err
	}
	return r.m.denormalize(out)
}

// PredictSym adds the predictions of the regressor on x to x's graph,
// building a network with the given name
func (r *ContinuousMLPRegressor) PredictSym(x *G.Node,
	name string) (*G.Node, error) {
	if name == "" {
		return nil, errors.New("predictSym: name must not be empty")
	}
	return r.predictSym(x, name)
}

// loss adds the mean squared error between the regressor's predictions
// on x and the labels y to their graph. With normalized outputs, the
// error is computed in the normalized space.
func (r *ContinuousMLPRegressor) loss(x, y *G.Node) (*G.Node, error) {
	pred, err := r.m.network(x, "train")
	if err != nil {
		return nil, err
	}
	if r.m.config.NormalizeOutputs {
		if y, err = standardize(y, r.m.yMean, r.m.yStd); err != nil {
			return nil, err
		}
	}

	diff, err := G.Sub(pred, y)
	if err != nil {
		return nil, err
	}
	sq, err := G.Square(diff)
	if err != nil {
		return nil, err
	}
	return G.Mean(sq)
}

// Fit fits the regressor to inputs xs and labels ys
func (r *ContinuousMLPRegressor) Fit(xs, ys *mat.Dense) error {
	return r.m.fit(xs, ys, r.outputDim, r.loss)
}

// Predict returns the predicted labels of xs
func (r *ContinuousMLPRegressor) Predict(xs *mat.Dense) (*mat.Dense, error) {
	return r.m.predictRows(xs)
}

// Loss returns the loss of the most recent training batch
func (r *ContinuousMLPRegressor) Loss() float64 {
	return r.m.Loss()
}

// Close releases the regressor's VMs
func (r *ContinuousMLPRegressor) Close() error {
	return r.m.Close()
}

// GobEncode implements the gob.GobEncoder interface
func (r *ContinuousMLPRegressor) GobEncode() ([]byte, error) {
	return encodeMLP(r.Base, r.m.config, r.m)
}

// GobDecode implements the gob.GobDecoder interface. The regressor is
// rebuilt from the encoded configuration and its parameters restored.
func (r *ContinuousMLPRegressor) GobDecode(in []byte) error {
	var c MLPConfig
	state, err := decodeMLP(in, &c)
	if err != nil {
		return err
	}

	var base Base
	if err := base.GobDecode(state.Base); err != nil {
		return err
	}
	fresh, err := NewContinuousMLPRegressor(base.inputShape, state.OutputDim,
		c)
	if err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	if err := restore(fresh.Base, state); err != nil {
		return errors.Wrap(err, "gobdecode")
	}

	*r = *fresh
	return nil
}
