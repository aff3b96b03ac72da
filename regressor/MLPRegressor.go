package regressor

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/goapprox/network"
	"github.com/samuelfneumann/goapprox/scope"
)

// minStd is added to standard deviations used for normalization
const minStd = 1e-8

// outputFn adds the output of a regressor on x to x's graph, building
// a network with the given name
type outputFn func(x *G.Node, name string) (*G.Node, error)

// lossFn adds the loss of a regressor on inputs x and labels y to
// their graph. The returned node must be a scalar.
type lossFn func(x, y *G.Node) (*G.Node, error)

// mlpRegressor implements the machinery shared by regressors built on
// an MLP: parameter scopes, normalization, batched prediction, and
// minibatch training.
//
// Every regressor owns its own scope.Store. Normalization statistics
// are non-trainable variables in the regressor's scope, so they are
// returned by ParamsInternal and saved along with the weights.
type mlpRegressor struct {
	config    MLPConfig
	inputDim  int
	outputDim int

	store *scope.Store
	scope *scope.Scope
	mlp   *network.MLP

	xMean, xStd *scope.Variable
	yMean, yStd *scope.Variable

	rng *rand.Rand

	// Predictions over batches of config.BatchSize rows
	predictIn  *G.Node
	predictVal G.Value
	predictVM  G.VM

	// Training over batches of config.BatchSize rows, built on the
	// first call to fit
	trainX, trainY *G.Node
	trainLoss      G.Value
	learnables     G.Nodes
	trainVM        G.VM
	solver         G.Solver
}

// newMLPRegressor creates the scope, normalization variables, and MLP
// of a regressor. The MLP has netOutputs outputs and is not built
// until initPredict is called.
func newMLPRegressor(inputDim, outputDim, netOutputs int,
	c MLPConfig) (*mlpRegressor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if inputDim < 1 || outputDim < 1 {
		return nil, errors.Errorf("input and output dimensions must be "+
			"positive, got %v and %v", inputDim, outputDim)
	}

	store := scope.NewStore()
	sc, err := store.Root().In(c.Name)
	if err != nil {
		return nil, err
	}

	m := &mlpRegressor{
		config:    c,
		inputDim:  inputDim,
		outputDim: outputDim,
		store:     store,
		scope:     sc,
		rng:       rand.New(rand.NewSource(c.Seed)),
	}

	// Normalization statistics are never trained
	stats := scope.Tags{scope.Trainable: false, scope.Regularizable: false}
	vars := []struct {
		v    **scope.Variable
		name string
		dim  int
		init G.InitWFn
	}{
		{&m.xMean, "x_mean", inputDim, G.Zeroes()},
		{&m.xStd, "x_std", inputDim, G.Ones()},
		{&m.yMean, "y_mean", outputDim, G.Zeroes()},
		{&m.yStd, "y_std", outputDim, G.Ones()},
	}
	for _, s := range vars {
		*s.v, err = sc.Variable(s.name, tensor.Float64,
			tensor.Shape{1, s.dim}, s.init, stats)
		if err != nil {
			return nil, err
		}
	}

	m.mlp, err = network.NewMLP("mlp", c.network(netOutputs))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ParamsInternal returns the variables in the regressor's scope that
// match tags, in creation order
func (m *mlpRegressor) ParamsInternal(tags Tags) ([]*scope.Variable, error) {
	return m.scope.Variables(tags), nil
}

// network adds the MLP on the normalized input x to x's graph
func (m *mlpRegressor) network(x *G.Node, name string) (*G.Node, error) {
	if !x.IsMatrix() || x.Shape()[1] != m.inputDim {
		return nil, errors.Errorf("input must be a matrix with %v columns, "+
			"got shape %v", m.inputDim, x.Shape())
	}
	if m.config.NormalizeInputs {
		var err error
		if x, err = standardize(x, m.xMean, m.xStd); err != nil {
			return nil, err
		}
	}
	return m.mlp.Build(m.scope, x, name)
}

// standardize adds (x - mean) / std to x's graph, where mean and std
// are row vectors broadcast over the rows of x
func standardize(x *G.Node, mean, std *scope.Variable) (*G.Node, error) {
	g := x.Graph()
	centred, err := G.BroadcastSub(x, mean.Node(g), nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return G.BroadcastHadamardDiv(centred, std.Node(g), nil, []byte{0})
}

// denormalize adds y * std + mean to y's graph if outputs are
// normalized, and returns y otherwise
func (m *mlpRegressor) denormalize(y *G.Node) (*G.Node, error) {
	if !m.config.NormalizeOutputs {
		return y, nil
	}
	g := y.Graph()
	scaled, err := G.BroadcastHadamardProd(y, m.yStd.Node(g), nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return G.BroadcastAdd(scaled, m.yMean.Node(g), nil, []byte{0})
}

// initPredict builds the default network of the regressor on a new
// graph which predicts batches of config.BatchSize rows
func (m *mlpRegressor) initPredict(out outputFn) error {
	g := G.NewGraph()
	m.predictIn = G.NewMatrix(g, tensor.Float64,
		G.WithShape(m.config.BatchSize, m.inputDim),
		G.WithName("x"), G.WithInit(G.Zeroes()))

	pred, err := out(m.predictIn, "")
	if err != nil {
		return errors.Wrap(err, "initPredict")
	}
	G.Read(pred, &m.predictVal)
	m.predictVM = G.NewTapeMachine(g)
	return nil
}

// predictRows runs the predict graph over xs in batches, padding the
// final batch with zeros
func (m *mlpRegressor) predictRows(xs *mat.Dense) (*mat.Dense, error) {
	rows, cols := xs.Dims()
	if cols != m.inputDim {
		return nil, errors.Errorf("predict: inputs have %v columns, "+
			"expected %v", cols, m.inputDim)
	}
	batch := m.config.BatchSize

	var out *mat.Dense
	for start := 0; start < rows; start += batch {
		n := min(batch, rows-start)
		backing := make([]float64, batch*cols)
		for i := 0; i < n; i++ {
			copy(backing[i*cols:(i+1)*cols], xs.RawRowView(start+i))
		}
		err := G.Let(m.predictIn, tensor.New(tensor.WithShape(batch, cols),
			tensor.WithBacking(backing)))
		if err != nil {
			return nil, errors.Wrap(err, "predict")
		}

		if err := m.predictVM.RunAll(); err != nil {
			return nil, errors.Wrap(err, "predict")
		}
		pred := m.predictVal.Data().([]float64)
		width := len(pred) / batch
		if out == nil {
			out = mat.NewDense(rows, width, nil)
		}
		for i := 0; i < n; i++ {
			out.SetRow(start+i, pred[i*width:(i+1)*width])
		}
		m.predictVM.Reset()
	}
	return out, nil
}

// setStats sets mean and std to the column means and population
// standard deviations of data
func setStats(data *mat.Dense, mean, std *scope.Variable) error {
	_, cols := data.Dims()
	means := make([]float64, cols)
	stds := make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, data)
		means[j], stds[j] = stat.PopMeanStdDev(col, nil)
		stds[j] += minStd
	}

	err := mean.Assign(tensor.New(tensor.WithShape(1, cols),
		tensor.WithBacking(means)))
	if err != nil {
		return err
	}
	return std.Assign(tensor.New(tensor.WithShape(1, cols),
		tensor.WithBacking(stds)))
}

// initTrain builds the training graph, which computes the loss and its
// gradient with respect to all trainable parameters
func (m *mlpRegressor) initTrain(labelDim int, loss lossFn) error {
	g := G.NewGraph()
	batch := m.config.BatchSize
	m.trainX = G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, m.inputDim), G.WithName("train_x"),
		G.WithInit(G.Zeroes()))
	m.trainY = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, labelDim),
		G.WithName("train_y"), G.WithInit(G.Zeroes()))

	cost, err := loss(m.trainX, m.trainY)
	if err != nil {
		return errors.Wrap(err, "initTrain")
	}
	if !cost.IsScalar() {
		return errors.Errorf("initTrain: loss must be a scalar, got shape %v",
			cost.Shape())
	}
	G.Read(cost, &m.trainLoss)

	trainable := m.scope.Variables(Tags{scope.Trainable: true})
	m.learnables = make(G.Nodes, len(trainable))
	for i, v := range trainable {
		m.learnables[i] = v.Node(g)
	}
	if _, err := G.Grad(cost, m.learnables...); err != nil {
		return errors.Wrap(err, "initTrain: could not compute gradient")
	}

	m.trainVM = G.NewTapeMachine(g, G.BindDualValues(m.learnables...))
	m.solver = m.config.Solver.New()
	return nil
}

// fit performs config.Epochs passes over shuffled minibatches of xs
// and ys. When the number of rows is not a multiple of the batch size,
// the final batch of each epoch wraps around the shuffled rows.
func (m *mlpRegressor) fit(xs, ys *mat.Dense, labelDim int,
	loss lossFn) error {
	rows, cols := xs.Dims()
	yRows, yCols := ys.Dims()
	if rows != yRows {
		return errors.Errorf("fit: %v inputs but %v labels", rows, yRows)
	}
	if cols != m.inputDim {
		return errors.Errorf("fit: inputs have %v columns, expected %v",
			cols, m.inputDim)
	}
	if yCols != labelDim {
		return errors.Errorf("fit: labels have %v columns, expected %v",
			yCols, labelDim)
	}

	if m.config.NormalizeInputs {
		if err := setStats(xs, m.xMean, m.xStd); err != nil {
			return errors.Wrap(err, "fit")
		}
	}
	if m.config.NormalizeOutputs {
		if err := setStats(ys, m.yMean, m.yStd); err != nil {
			return errors.Wrap(err, "fit")
		}
	}

	if m.trainVM == nil {
		if err := m.initTrain(labelDim, loss); err != nil {
			return err
		}
	}

	batch := m.config.BatchSize
	batches := (rows + batch - 1) / batch
	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		perm := m.rng.Perm(rows)
		total := 0.0
		for b := 0; b < batches; b++ {
			x := make([]float64, batch*cols)
			y := make([]float64, batch*yCols)
			for i := 0; i < batch; i++ {
				row := perm[(b*batch+i)%rows]
				copy(x[i*cols:(i+1)*cols], xs.RawRowView(row))
				copy(y[i*yCols:(i+1)*yCols], ys.RawRowView(row))
			}

			if err := m.step(x, y); err != nil {
				return errors.Wrapf(err, "fit: epoch %v batch %v", epoch, b)
			}
			total += m.Loss()
		}
		klog.V(1).Infof("%v: epoch %d mean loss %.6f", m.scope.Path(),
			epoch, total/float64(batches))
	}
	return nil
}

// step takes a single gradient step on a batch of inputs and labels
func (m *mlpRegressor) step(x, y []float64) error {
	defer m.trainVM.Reset()

	err := G.Let(m.trainX, tensor.New(tensor.WithShape(m.trainX.Shape()...),
		tensor.WithBacking(x)))
	if err != nil {
		return err
	}
	err = G.Let(m.trainY, tensor.New(tensor.WithShape(m.trainY.Shape()...),
		tensor.WithBacking(y)))
	if err != nil {
		return err
	}

	if err := m.trainVM.RunAll(); err != nil {
		return err
	}
	return m.solver.Step(G.NodesToValueGrads(m.learnables))
}

// Loss returns the loss of the last training batch, or 0 if the
// regressor has not been fit
func (m *mlpRegressor) Loss() float64 {
	if m.trainLoss == nil {
		return 0
	}
	switch v := m.trainLoss.Data().(type) {
	case float64:
		return v
	case []float64:
		return v[0]
	}
	return 0
}

// Close releases the resources of the regressor's VMs and drops the
// nodes of its variables in the predict and train graphs
func (m *mlpRegressor) Close() error {
	if m.predictVM != nil {
		m.store.Forget(m.predictIn.Graph())
		if err := m.predictVM.Close(); err != nil {
			return err
		}
	}
	if m.trainVM != nil {
		m.store.Forget(m.trainX.Graph())
		return m.trainVM.Close()
	}
	return nil
}

// mlpState is the serialized state of an MLP regressor
type mlpState struct {
	Config    []byte // JSON configuration
	InputDim  int
	OutputDim int
	Base      []byte // Includes parameter values
}

// encodeMLP serializes a regressor built on an mlpRegressor. The
// configuration is stored as JSON and all parameters, including
// normalization statistics, are stored flattened in the Base state.
func encodeMLP(b *Base, config interface{}, m *mlpRegressor) ([]byte,
	error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, errors.Wrap(err, "gobencode: could not encode config")
	}
	base, err := b.GobEncode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(mlpState{
		Config:    configJSON,
		InputDim:  m.inputDim,
		OutputDim: m.outputDim,
		Base:      base,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gobencode")
	}
	return buf.Bytes(), nil
}

// decodeMLP decodes the state of a regressor and unmarshals its
// configuration into config
func decodeMLP(in []byte, config interface{}) (mlpState, error) {
	var state mlpState
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&state); err != nil {
		return mlpState{}, errors.Wrap(err, "gobdecode")
	}
	if err := json.Unmarshal(state.Config, config); err != nil {
		return mlpState{}, errors.Wrap(err, "gobdecode: could not "+
			"decode config")
	}
	return state, nil
}

// restore sets the base state and parameters of a freshly constructed
// regressor from a decoded state
func restore(b *Base, state mlpState) error {
	return b.GobDecode(state.Base)
}
