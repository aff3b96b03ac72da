// Package network implements the neural network models that function
// approximators are built from.
package network

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/goapprox/initwfn"
	"github.com/samuelfneumann/goapprox/scope"
)

// DefaultNetwork is the name of the first network built by a model
const DefaultNetwork = "default"

// MLPConfig describes a multi-layered perceptron
type MLPConfig struct {
	OutputDim   int
	HiddenSizes []int

	// Activations of the hidden layers and of the output layer. A Nil
	// activation is linear.
	HiddenActivation *Activation
	OutputActivation *Activation

	// Weight initializers for the kernels (W) and biases (B) of the
	// hidden and output layers
	HiddenWInit *initwfn.InitWFn
	HiddenBInit *initwfn.InitWFn
	OutputWInit *initwfn.InitWFn
	OutputBInit *initwfn.InitWFn

	// Whether each hidden layer is followed by layer normalization
	LayerNormalization bool
}

// Validate returns an error if the MLPConfig cannot create an MLP
func (c MLPConfig) Validate() error {
	if c.OutputDim < 1 {
		return errors.Errorf("output dimension must be positive, got %v",
			c.OutputDim)
	}
	for i, size := range c.HiddenSizes {
		if size < 1 {
			return errors.Errorf("hidden layer %v has non-positive size %v",
				i, size)
		}
	}
	if c.HiddenWInit == nil || c.HiddenBInit == nil {
		return errors.New("hidden layer initializers must be set")
	}
	if c.OutputWInit == nil || c.OutputBInit == nil {
		return errors.New("output layer initializers must be set")
	}
	return nil
}

// Network is a single build of a model on some input node
type Network struct {
	Name    string
	Input   *G.Node
	Outputs *G.Node

	outputVal G.Value
}

// Output returns the value of the Outputs node from the last run of a
// VM on the Network's graph
func (n *Network) Output() G.Value {
	return n.outputVal
}

// Graph returns the graph of the Network
func (n *Network) Graph() *G.ExprGraph {
	return n.Input.Graph()
}

// MLP is a multi-layered perceptron model. An MLP holds no graph.
// Each call to Build() adds the forward pass of the MLP on some input
// node to that node's graph, creating a Network. All Networks built by
// an MLP share the same parameters.
type MLP struct {
	name   string
	config MLPConfig
	layers []*denseLayer

	scope    *scope.Scope // Scope of the MLP, set on the first build
	parent   string       // Path of the scope the MLP was first built in
	inputDim int

	networks map[string]*Network
	order    []string
}

// NewMLP returns a new MLP. No parameters are created until the MLP
// is built.
func NewMLP(name string, c MLPConfig) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "newMLP %v", name)
	}
	if c.HiddenActivation.IsNil() {
		c.HiddenActivation = Nil()
	}
	if c.OutputActivation.IsNil() {
		c.OutputActivation = Nil()
	}

	layers := make([]*denseLayer, 0, len(c.HiddenSizes)+1)
	for i, size := range c.HiddenSizes {
		layers = append(layers, &denseLayer{
			name:      fmt.Sprintf("hidden_%d", i),
			units:     size,
			wInit:     c.HiddenWInit.InitWFn(),
			bInit:     c.HiddenBInit.InitWFn(),
			act:       c.HiddenActivation,
			layerNorm: c.LayerNormalization,
		})
	}
	layers = append(layers, &denseLayer{
		name:  "output",
		units: c.OutputDim,
		wInit: c.OutputWInit.InitWFn(),
		bInit: c.OutputBInit.InitWFn(),
		act:   c.OutputActivation,
	})

	return &MLP{
		name:     name,
		config:   c,
		layers:   layers,
		networks: make(map[string]*Network),
	}, nil
}

// Name returns the name of the MLP, which is also the name of its
// scope
func (m *MLP) Name() string {
	return m.name
}

// Config returns the configuration of the MLP
func (m *MLP) Config() MLPConfig {
	return m.config
}

// Build adds the forward pass of the MLP on input to input's graph and
// returns the output node.
//
// The first build creates the MLP's parameters in the sub-scope of sc
// named after the MLP and registers the network as DefaultNetwork when
// name is empty. Later builds must be given a new, non-empty name and
// the same sc (or nil); they reuse the parameters of the first build.
func (m *MLP) Build(sc *scope.Scope, input *G.Node, name string) (*G.Node,
	error) {
	if !input.IsMatrix() {
		return nil, errors.Errorf("build %v: input must be a matrix, got "+
			"shape %v", m.name, input.Shape())
	}

	first := m.scope == nil
	if first {
		if sc == nil {
			return nil, errors.Errorf("build %v: no scope given", m.name)
		}
		if name == "" {
			name = DefaultNetwork
		}
		ms, err := sc.Unique().In(m.name)
		if err != nil {
			return nil, errors.Wrapf(err, "build %v", m.name)
		}
		m.scope = ms
		m.parent = sc.Path()
		m.inputDim = input.Shape()[1]
	} else {
		if name == "" {
			return nil, errors.Errorf("build %v: only the first network "+
				"can be unnamed", m.name)
		}
		if sc != nil && sc.Path() != m.parent {
			return nil, errors.Errorf("build %v: built in scope %v but "+
				"requested scope %v", m.name, m.parent, sc.Path())
		}
		if input.Shape()[1] != m.inputDim {
			return nil, errors.Errorf("build %v: invalid input features"+
				"\n\twant(%v)\n\thave(%v)", m.name, m.inputDim,
				input.Shape()[1])
		}
	}
	if _, ok := m.networks[name]; ok {
		return nil, errors.Errorf("build %v: network %q already exists",
			m.name, name)
	}

	layerScope := m.scope
	if !first {
		layerScope = m.scope.Reuse()
	}

	pred := input
	var err error
	for _, l := range m.layers {
		if pred, err = l.build(layerScope, pred); err != nil {
			if first {
				m.scope = nil
			}
			return nil, errors.Wrapf(err, "build %v", m.name)
		}
	}

	net := &Network{Name: name, Input: input, Outputs: pred}
	G.Read(pred, &net.outputVal)
	m.networks[name] = net
	m.order = append(m.order, name)
	klog.V(1).Infof("built network %q of %v in %v", name, m.name,
		m.scope.Path())

	return pred, nil
}

// Networks returns the networks built by the MLP keyed by name
func (m *MLP) Networks() map[string]*Network {
	out := make(map[string]*Network, len(m.networks))
	for k, v := range m.networks {
		out[k] = v
	}
	return out
}

// Network returns the network with the given name
func (m *MLP) Network(name string) (*Network, bool) {
	n, ok := m.networks[name]
	return n, ok
}

// Default returns the first network built by the MLP, or nil if the
// MLP has not been built.
func (m *MLP) Default() *Network {
	if len(m.order) == 0 {
		return nil
	}
	return m.networks[m.order[0]]
}

// Scope returns the scope of the MLP's parameters, nil before the
// first build.
func (m *MLP) Scope() *scope.Scope {
	return m.scope
}

// Params returns the parameters of the MLP in layer order, nil before
// the first build.
func (m *MLP) Params() []*scope.Variable {
	if m.scope == nil {
		return nil
	}
	var out []*scope.Variable
	for _, l := range m.layers {
		out = append(out, l.variables()...)
	}
	return out
}

// InputDim returns the number of input features, 0 before the first
// build.
func (m *MLP) InputDim() int {
	return m.inputDim
}

// OutputDim returns the number of outputs of the MLP
func (m *MLP) OutputDim() int {
	return m.config.OutputDim
}
