package regressor

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goapprox/scope"
	"github.com/samuelfneumann/goapprox/utils/op"
)

// GaussianMLPConfig describes a GaussianMLPRegressor
type GaussianMLPConfig struct {
	MLPConfig

	// InitStd is the initial standard deviation of the predicted
	// distribution, in the normalized output space if outputs are
	// normalized
	InitStd float64

	// LearnStd determines whether the standard deviation is trained
	LearnStd bool
}

// DefaultGaussianMLPConfig returns the default configuration of a
// GaussianMLPRegressor with the given name
func DefaultGaussianMLPConfig(name string) GaussianMLPConfig {
	return GaussianMLPConfig{
		MLPConfig: DefaultMLPConfig(name),
		InitStd:   1.0,
		LearnStd:  true,
	}
}

// Validate checks that the configuration is valid
func (c GaussianMLPConfig) Validate() error {
	if err := c.MLPConfig.Validate(); err != nil {
		return err
	}
	if c.InitStd <= 0 {
		return errors.Errorf("initial standard deviation must be positive, "+
			"got %v", c.InitStd)
	}
	return nil
}

// GaussianMLPRegressor predicts diagonal Gaussian distributions over
// labels. The mean is computed by an MLP and the log standard
// deviation is a single parameter shared by all inputs. Training
// maximizes the log likelihood of the labels.
type GaussianMLPRegressor struct {
	*StochasticBase
	m      *mlpRegressor
	config GaussianMLPConfig
	logStd *scope.Variable
	src    rand.Source
}

// NewGaussianMLPRegressor returns a new GaussianMLPRegressor
func NewGaussianMLPRegressor(inputShape []int, outputDim int,
	c GaussianMLPConfig) (*GaussianMLPRegressor, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newGaussianMLPRegressor")
	}
	inputDim, err := flatDim(inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "newGaussianMLPRegressor")
	}
	m, err := newMLPRegressor(inputDim, outputDim, outputDim, c.MLPConfig)
	if err != nil {
		return nil, errors.Wrap(err, "newGaussianMLPRegressor")
	}

	logStd, err := m.scope.Variable("log_std", tensor.Float64,
		tensor.Shape{1, outputDim}, G.ValuesOf(math.Log(c.InitStd)),
		Tags{scope.Trainable: c.LearnStd, scope.Regularizable: false})
	if err != nil {
		return nil, errors.Wrap(err, "newGaussianMLPRegressor")
	}

	r := &GaussianMLPRegressor{
		StochasticBase: NewStochasticBase(inputShape, outputDim, c.Name, m),
		m:              m,
		config:         c,
		logStd:         logStd,
		src:            rand.NewSource(c.Seed),
	}
	r.SetScope(m.scope)

	if err := m.initPredict(r.meanSym); err != nil {
		return nil, errors.Wrap(err, "newGaussianMLPRegressor")
	}
	return r, nil
}

// Config returns the configuration of the regressor
func (r *GaussianMLPRegressor) Config() GaussianMLPConfig {
	return r.config
}

// meanSym adds the denormalized mean of the distribution over labels
// of x to x's graph
func (r *GaussianMLPRegressor) meanSym(x *G.Node, name string) (*G.Node,
	error) {
	out, err := r.m.network(x, name)
	if err != nil {
		return nil, err
	}
	return r.m.denormalize(out)
}

// broadcastRows repeats the row vector v over rows rows
func broadcastRows(v *G.Node, rows int) (*G.Node, error) {
	zeros := G.NewMatrix(v.Graph(), v.Dtype(),
		G.WithShape(rows, v.Shape()[1]), G.WithInit(G.Zeroes()))
	return G.BroadcastAdd(zeros, v, nil, []byte{0})
}

// logStdSym adds the log standard deviation of the predicted
// distribution to g, repeated for each of rows rows. If normalized is
// false, the log standard deviation is in the space of the labels.
func (r *GaussianMLPRegressor) logStdSym(g *G.ExprGraph, rows int,
	normalized bool) (*G.Node, error) {
	logStd := r.logStd.Node(g)
	if !normalized && r.m.config.NormalizeOutputs {
		logYStd, err := G.Log(r.m.yStd.Node(g))
		if err != nil {
			return nil, err
		}
		if logStd, err = G.Add(logStd, logYStd); err != nil {
			return nil, err
		}
	}
	return broadcastRows(logStd, rows)
}

// DistInfoSym adds the distribution over labels given inputs x to x's
// graph. The returned DistInfo holds the "mean" and "log_std" of the
// distribution, each with one row per row of x.
func (r *GaussianMLPRegressor) DistInfoSym(x *G.Node, name string) (DistInfo,
	error) {
	if name == "" {
		return nil, errors.New("distInfoSym: name must not be empty")
	}
	mean, err := r.meanSym(x, name)
	if err != nil {
		return nil, errors.Wrap(err, "distInfoSym")
	}
	logStd, err := r.logStdSym(x.Graph(), x.Shape()[0], false)
	if err != nil {
		return nil, errors.Wrap(err, "distInfoSym")
	}
	return DistInfo{"mean": mean, "log_std": logStd}, nil
}

// LogLikelihoodSym adds the log likelihood of each row of y given the
// corresponding row of x to the graph of x and y
func (r *GaussianMLPRegressor) LogLikelihoodSym(x, y *G.Node,
	name string) (*G.Node, error) {
	info, err := r.DistInfoSym(x, name)
	if err != nil {
		return nil, errors.Wrap(err, "logLikelihoodSym")
	}
	return op.DiagGaussianLogLikelihood(y, info["mean"], info["log_std"])
}

// loss adds the negative mean log likelihood of y given x to their
// graph, computed in the normalized output space
func (r *GaussianMLPRegressor) loss(x, y *G.Node) (*G.Node, error) {
	mean, err := r.m.network(x, "train")
	if err != nil {
		return nil, err
	}
	if r.m.config.NormalizeOutputs {
		if y, err = standardize(y, r.m.yMean, r.m.yStd); err != nil {
			return nil, err
		}
	}
	logStd, err := r.logStdSym(x.Graph(), x.Shape()[0], true)
	if err != nil {
		return nil, err
	}

	ll, err := op.DiagGaussianLogLikelihood(y, mean, logStd)
	if err != nil {
		return nil, err
	}
	meanLL, err := G.Mean(ll)
	if err != nil {
		return nil, err
	}
	return G.Neg(meanLL)
}

// Fit fits the regressor to inputs xs and labels ys
func (r *GaussianMLPRegressor) Fit(xs, ys *mat.Dense) error {
	return r.m.fit(xs, ys, r.outputDim, r.loss)
}

// Predict returns the mean of the predicted distribution for each row
// of xs
func (r *GaussianMLPRegressor) Predict(xs *mat.Dense) (*mat.Dense, error) {
	return r.m.predictRows(xs)
}

// Std returns the standard deviation of the predicted distribution in
// the space of the labels
func (r *GaussianMLPRegressor) Std() []float64 {
	std := r.logStd.Data()
	yStd := r.m.yStd.Data()
	for i := range std {
		std[i] = math.Exp(std[i])
		if r.m.config.NormalizeOutputs {
			std[i] *= yStd[i]
		}
	}
	return std
}

// Sample draws a single label for each row of xs from the predicted
// distribution
func (r *GaussianMLPRegressor) Sample(xs *mat.Dense) (*mat.Dense, error) {
	mean, err := r.Predict(xs)
	if err != nil {
		return nil, errors.Wrap(err, "sample")
	}
	std := r.Std()

	rows, cols := mean.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dist := distuv.Normal{Mu: mean.At(i, j), Sigma: std[j],
				Src: r.src}
			out.Set(i, j, dist.Rand())
		}
	}
	return out, nil
}

// Loss returns the loss of the most recent training batch
func (r *GaussianMLPRegressor) Loss() float64 {
	return r.m.Loss()
}

// Close releases the regressor's VMs
func (r *GaussianMLPRegressor) Close() error {
	return r.m.Close()
}

// GobEncode implements the gob.GobEncoder interface
func (r *GaussianMLPRegressor) GobEncode() ([]byte, error) {
	return encodeMLP(r.Base, r.config, r.m)
}

// GobDecode implements the gob.GobDecoder interface. The regressor is
// rebuilt from the encoded configuration and its parameters restored.
func (r *GaussianMLPRegressor) GobDecode(in []byte) error {
	var c GaussianMLPConfig
	state, err := decodeMLP(in, &c)
	if err != nil {
		return err
	}

	var base Base
	if err := base.GobDecode(state.Base); err != nil {
		return err
	}
	fresh, err := NewGaussianMLPRegressor(base.inputShape, state.OutputDim, c)
	if err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	if err := restore(fresh.Base, state); err != nil {
		return errors.Wrap(err, "gobdecode")
	}

	*r = *fresh
	return nil
}
