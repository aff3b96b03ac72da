// Package qfunction implements action-value functions using Gorgonia.
package qfunction

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"

	env "github.com/samuelfneumann/goapprox/environment"
	"github.com/samuelfneumann/goapprox/network"
	"github.com/samuelfneumann/goapprox/regressor"
	"github.com/samuelfneumann/goapprox/scope"
	"github.com/samuelfneumann/goapprox/utils/floatutils"
)

// DiscreteMLP is an action-value function for environments with
// discrete actions. Given N actions, an MLP predicts N outputs, one
// per action.
//
// On construction, the MLP is built in the DiscreteMLP's own graph on
// an obs input of Batch observations. This default network can be run
// with Predict, or with an external VM on Graph():
//
//		Set the observations:	G.Let(q.Input(), obs)
//		Predict the values:		vm.RunAll()
//		Read the values:		q.Network().Output()
//
// Further networks which share the parameters of the default network
// are built on other state inputs with QValSym.
type DiscreteMLP struct {
	config    Config
	obsDim    int
	actionDim int

	scope  *scope.Scope
	model  *network.MLP
	params *regressor.Base

	g  *G.ExprGraph
	vm G.VM
}

// NewDiscreteMLP returns a new DiscreteMLP for the environment. The
// action space must be discrete.
func NewDiscreteMLP(e env.Specer, c Config) (*DiscreteMLP, error) {
	action := e.ActionSpec()
	if action.Cardinality != env.Discrete {
		return nil, errors.Errorf("newDiscreteMLP: actions must be "+
			"discrete\n\twant(%v)\n\thave(%v)", env.Discrete,
			action.Cardinality)
	}
	return newDiscreteMLP(e.ObservationSpec().Dims(), action.FlatDim(), c)
}

func newDiscreteMLP(obsDim, actionDim int, c Config) (*DiscreteMLP,
	error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newDiscreteMLP")
	}
	if obsDim < 1 || actionDim < 1 {
		return nil, errors.Errorf("newDiscreteMLP: observation and action "+
			"dimensions must be positive, got %v and %v", obsDim, actionDim)
	}

	sc, err := scope.NewStore().Root().Unique().In(c.Name)
	if err != nil {
		return nil, errors.Wrap(err, "newDiscreteMLP")
	}
	model, err := network.NewMLP("mlp", c.network(actionDim))
	if err != nil {
		return nil, errors.Wrap(err, "newDiscreteMLP")
	}

	q := &DiscreteMLP{
		config:    c,
		obsDim:    obsDim,
		actionDim: actionDim,
		scope:     sc,
		model:     model,
		g:         G.NewGraph(),
	}
	q.params = regressor.NewBase([]int{obsDim}, actionDim, c.Name, q)
	q.params.SetScope(sc)

	obs := G.NewMatrix(q.g, tensor.Float64, G.WithShape(c.Batch, obsDim),
		G.WithName("obs"), G.WithInit(G.Zeroes()))
	if _, err := model.Build(sc, obs, ""); err != nil {
		return nil, errors.Wrap(err, "newDiscreteMLP")
	}
	klog.V(1).Infof("created %v with %v observation features and %v "+
		"actions", sc.Path(), obsDim, actionDim)

	return q, nil
}

// Config returns the configuration of the DiscreteMLP
func (q *DiscreteMLP) Config() Config {
	return q.config
}

// Name returns the name of the DiscreteMLP
func (q *DiscreteMLP) Name() string {
	return q.config.Name
}

// Scope returns the variable scope of the DiscreteMLP
func (q *DiscreteMLP) Scope() *scope.Scope {
	return q.scope
}

// Graph returns the graph of the default network
func (q *DiscreteMLP) Graph() *G.ExprGraph {
	return q.g
}

// Network returns the default network
func (q *DiscreteMLP) Network() *network.Network {
	return q.model.Default()
}

// Networks returns all networks built by the DiscreteMLP, keyed by
// name
func (q *DiscreteMLP) Networks() map[string]*network.Network {
	return q.model.Networks()
}

// QVals returns the action values of the default network
func (q *DiscreteMLP) QVals() *G.Node {
	return q.Network().Outputs
}

// Input returns the obs input of the default network
func (q *DiscreteMLP) Input() *G.Node {
	return q.Network().Input
}

// ObservationDim returns the number of observation features
func (q *DiscreteMLP) ObservationDim() int {
	return q.obsDim
}

// Actions returns the number of actions
func (q *DiscreteMLP) Actions() int {
	return q.actionDim
}

// BatchSize returns the number of observations in the obs input
func (q *DiscreteMLP) BatchSize() int {
	return q.config.Batch
}

// QValSym adds the action values of stateInput to its graph, which
// need not be the graph of the DiscreteMLP. The network shares the
// parameters of the default network and is registered under name,
// which must be unique.
func (q *DiscreteMLP) QValSym(stateInput *G.Node, name string) (*G.Node,
	error) {
	qvals, err := q.model.Build(q.scope, stateInput, name)
	if err != nil {
		return nil, errors.Wrap(err, "qValSym")
	}
	return qvals, nil
}

// ParamsInternal returns the variables of the DiscreteMLP matching
// tags
func (q *DiscreteMLP) ParamsInternal(tags regressor.Tags) ([]*scope.Variable,
	error) {
	return q.scope.Variables(tags), nil
}

// Params returns the parameters matching tags
func (q *DiscreteMLP) Params(tags regressor.Tags) ([]*scope.Variable,
	error) {
	return q.params.Params(tags)
}

// ParamValues returns the values of the parameters matching tags as a
// flat slice
func (q *DiscreteMLP) ParamValues(tags regressor.Tags) ([]float64, error) {
	return q.params.ParamValues(tags)
}

// SetParamValues sets the values of the parameters matching tags from
// a flat slice, as returned by ParamValues
func (q *DiscreteMLP) SetParamValues(flat []float64,
	tags regressor.Tags) error {
	return q.params.SetParamValues(flat, tags)
}

// Predict returns the action values of a batch of observations, row
// major with one row per observation. obs must hold exactly
// BatchSize() observations.
func (q *DiscreteMLP) Predict(obs []float64) ([]float64, error) {
	if len(obs) != q.config.Batch*q.obsDim {
		return nil, errors.Errorf("predict: invalid number of "+
			"observation features\n\twant(%v)\n\thave(%v)",
			q.config.Batch*q.obsDim, len(obs))
	}
	if q.vm == nil {
		q.vm = G.NewTapeMachine(q.g)
	}
	defer q.vm.Reset()

	backing := append([]float64(nil), obs...)
	err := G.Let(q.Input(), tensor.New(tensor.WithShape(q.config.Batch,
		q.obsDim), tensor.WithBacking(backing)))
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	if err := q.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	out := q.Network().Output().Data().([]float64)
	return append([]float64(nil), out...), nil
}

// GreedyActions returns the action of maximum value for each
// observation. Ties are broken by the lowest action.
func (q *DiscreteMLP) GreedyActions(obs []float64) ([]int, error) {
	qvals, err := q.Predict(obs)
	if err != nil {
		return nil, errors.Wrap(err, "greedyActions")
	}
	return floatutils.ArgMax(qvals, q.actionDim), nil
}

// Clone returns a copy of the DiscreteMLP with a new batch size for
// its obs input. The copy has its own parameters, initialized to the
// current parameters of q.
func (q *DiscreteMLP) Clone(batch int) (*DiscreteMLP, error) {
	c := q.config
	c.Batch = batch
	clone, err := newDiscreteMLP(q.obsDim, q.actionDim, c)
	if err != nil {
		return nil, errors.Wrap(err, "clone")
	}

	values, err := q.ParamValues(nil)
	if err != nil {
		return nil, errors.Wrap(err, "clone")
	}
	if err := clone.SetParamValues(values, nil); err != nil {
		return nil, errors.Wrap(err, "clone")
	}
	return clone, nil
}

// Close releases the VM used by Predict
func (q *DiscreteMLP) Close() error {
	if q.vm == nil {
		return nil
	}
	return q.vm.Close()
}

// discreteMLPState is the serialized state of a DiscreteMLP
type discreteMLPState struct {
	Config    []byte
	ObsDim    int
	ActionDim int
	Params    []float64
}

// GobEncode implements the gob.GobEncoder interface. The configuration
// and parameter values are encoded; networks built by QValSym are not.
func (q *DiscreteMLP) GobEncode() ([]byte, error) {
	config, err := json.Marshal(q.config)
	if err != nil {
		return nil, errors.Wrap(err, "gobencode: could not encode config")
	}
	params, err := q.ParamValues(nil)
	if err != nil {
		return nil, errors.Wrap(err, "gobencode: could not get parameters")
	}

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(discreteMLPState{
		Config:    config,
		ObsDim:    q.obsDim,
		ActionDim: q.actionDim,
		Params:    params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gobencode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (q *DiscreteMLP) GobDecode(in []byte) error {
	var state discreteMLPState
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&state); err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	var c Config
	if err := json.Unmarshal(state.Config, &c); err != nil {
		return errors.Wrap(err, "gobdecode: could not decode config")
	}

	decoded, err := newDiscreteMLP(state.ObsDim, state.ActionDim, c)
	if err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	if err := decoded.SetParamValues(state.Params, nil); err != nil {
		return errors.Wrap(err, "gobdecode")
	}

	*q = *decoded
	return errors.Wrap(q.params.SetSource(q), "gobdecode")
}
