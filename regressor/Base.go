package regressor

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/goapprox/scope"
)

// assignOp assigns values to a single parameter through a buffer that
// has the parameter's dtype and shape
type assignOp struct {
	param       *scope.Variable
	placeholder *tensor.Dense
}

// run casts value into the placeholder and assigns it to the parameter
func (a assignOp) run(value *tensor.Dense) error {
	switch dst := a.placeholder.Data().(type) {
	case []float64:
		copy(dst, value.Data().([]float64))
	case []float32:
		for i, x := range value.Data().([]float64) {
			dst[i] = float32(x)
		}
	default:
		return errors.Errorf("assign %v: unsupported dtype %v",
			a.param.Path(), a.placeholder.Dtype())
	}
	return a.param.Assign(a.placeholder)
}

// Base is the base of all regressors. It implements the parameter
// operations of Regressor on top of a ParamSource, which concrete
// regressors provide. Fit and Predict return ErrNotImplemented.
//
// Lists of parameters, dtypes, and shapes are cached per tag set.
// Caches are never serialized.
type Base struct {
	inputShape []int
	outputDim  int
	name       string
	scope      *scope.Scope
	source     ParamSource

	cachedParams             map[string][]*scope.Variable
	cachedParamDtypes        map[string][]tensor.Dtype
	cachedParamShapes        map[string][]tensor.Shape
	cachedAssignOps          map[*scope.Variable]assignOp
	cachedAssignPlaceholders map[*scope.Variable]*tensor.Dense

	// Decoded parameter values waiting for a ParamSource
	pending []float64
}

// NewBase returns a new Base regressor. If source is nil, all
// parameter operations return ErrNotImplemented.
func NewBase(inputShape []int, outputDim int, name string,
	source ParamSource) *Base {
	b := &Base{
		inputShape: append([]int(nil), inputShape...),
		outputDim:  outputDim,
		name:       name,
		source:     source,
	}
	b.resetCaches()
	return b
}

// resetCaches empties all caches
func (b *Base) resetCaches() {
	b.cachedParams = make(map[string][]*scope.Variable)
	b.cachedParamDtypes = make(map[string][]tensor.Dtype)
	b.cachedParamShapes = make(map[string][]tensor.Shape)
	b.cachedAssignOps = make(map[*scope.Variable]assignOp)
	b.cachedAssignPlaceholders = make(map[*scope.Variable]*tensor.Dense)
}

// Name returns the name of the regressor
func (b *Base) Name() string {
	return b.name
}

// InputShape returns the shape of a single input
func (b *Base) InputShape() []int {
	return append([]int(nil), b.inputShape...)
}

// OutputDim returns the dimension of a single output
func (b *Base) OutputDim() int {
	return b.outputDim
}

// Scope returns the variable scope of the regressor, nil if it has not
// been set
func (b *Base) Scope() *scope.Scope {
	return b.scope
}

// SetScope sets the variable scope of the regressor
func (b *Base) SetScope(sc *scope.Scope) {
	b.scope = sc
}

// SetSource sets the ParamSource of the regressor and drops all
// cached parameters. Parameter values decoded before the regressor had
// a ParamSource are assigned to the parameters of source.
func (b *Base) SetSource(source ParamSource) error {
	b.source = source
	b.resetCaches()
	if source == nil || b.pending == nil {
		return nil
	}
	values := b.pending
	b.pending = nil
	return errors.Wrap(b.SetParamValues(values, nil), "setSource")
}

// Fit fits the regressor. It must be provided by concrete regressors.
func (b *Base) Fit(xs, ys *mat.Dense) error {
	return errors.Wrap(ErrNotImplemented, "fit")
}

// Predict predicts outputs. It must be provided by concrete regressors.
func (b *Base) Predict(xs *mat.Dense) (*mat.Dense, error) {
	return nil, errors.Wrap(ErrNotImplemented, "predict")
}

// ParamsInternal returns the uncached parameters from the regressor's
// ParamSource
func (b *Base) ParamsInternal(tags Tags) ([]*scope.Variable, error) {
	if b.source == nil {
		return nil, errors.Wrap(ErrNotImplemented, "paramsInternal")
	}
	return b.source.ParamsInternal(tags)
}

// Params returns the parameters filtered by tags. Common tags are
// "trainable" and "regularizable".
func (b *Base) Params(tags Tags) ([]*scope.Variable, error) {
	key := tags.Key()
	if params, ok := b.cachedParams[key]; ok {
		return params, nil
	}

	params, err := b.ParamsInternal(tags)
	if err != nil {
		return nil, err
	}
	b.cachedParams[key] = params
	return params, nil
}

// ParamDtypes returns the dtypes of the current values of the
// parameters filtered by tags
func (b *Base) ParamDtypes(tags Tags) ([]tensor.Dtype, error) {
	key := tags.Key()
	if dtypes, ok := b.cachedParamDtypes[key]; ok {
		return dtypes, nil
	}

	params, err := b.Params(tags)
	if err != nil {
		return nil, err
	}
	dtypes := make([]tensor.Dtype, len(params))
	for i, p := range params {
		dtypes[i] = p.Value().Dtype()
	}
	b.cachedParamDtypes[key] = dtypes
	return dtypes, nil
}

// ParamShapes returns the shapes of the current values of the
// parameters filtered by tags
func (b *Base) ParamShapes(tags Tags) ([]tensor.Shape, error) {
	key := tags.Key()
	if shapes, ok := b.cachedParamShapes[key]; ok {
		return shapes, nil
	}

	params, err := b.Params(tags)
	if err != nil {
		return nil, err
	}
	shapes := make([]tensor.Shape, len(params))
	for i, p := range params {
		shapes[i] = p.Value().Shape().Clone()
	}
	b.cachedParamShapes[key] = shapes
	return shapes, nil
}

// ParamValues returns the current values of the parameters filtered
// by tags, flattened into a single slice
func (b *Base) ParamValues(tags Tags) ([]float64, error) {
	params, err := b.Params(tags)
	if err != nil {
		return nil, err
	}
	values := make([]tensor.Tensor, len(params))
	for i, p := range params {
		values[i] = p.Value()
	}
	flat, err := FlattenTensors(values)
	if err != nil {
		return nil, errors.Wrap(err, "paramValues")
	}
	return flat, nil
}

// SetParamValues sets the values of the parameters filtered by tags
// from a flattened slice, as returned by ParamValues. Values are cast
// to the dtype of each parameter.
//
// The Debug tag is not used to filter parameters. If set, the name of
// each parameter is logged as it is set.
func (b *Base) SetParamValues(flat []float64, tags Tags) error {
	debug := tags[Debug]
	if _, ok := tags[Debug]; ok {
		tags = tags.Clone()
		delete(tags, Debug)
	}

	shapes, err := b.ParamShapes(tags)
	if err != nil {
		return errors.Wrap(err, "setParamValues")
	}
	values, err := UnflattenTensors(flat, shapes)
	if err != nil {
		return errors.Wrap(err, "setParamValues")
	}
	params, err := b.Params(tags)
	if err != nil {
		return errors.Wrap(err, "setParamValues")
	}
	dtypes, err := b.ParamDtypes(tags)
	if err != nil {
		return errors.Wrap(err, "setParamValues")
	}

	for i, param := range params {
		op, ok := b.cachedAssignOps[param]
		if !ok {
			placeholder := tensor.New(tensor.Of(dtypes[i]),
				tensor.WithShape(shapes[i]...))
			op = assignOp{param: param, placeholder: placeholder}
			b.cachedAssignOps[param] = op
			b.cachedAssignPlaceholders[param] = placeholder
		}
		if err := op.run(values[i]); err != nil {
			return errors.Wrap(err, "setParamValues")
		}
		if debug {
			klog.Infof("setting value of %s", param.Path())
		}
	}
	return nil
}

// baseState is the serialized state of a Base
type baseState struct {
	InputShape []int
	OutputDim  int
	Name       string
	Params     []float64
}

// GobEncode implements the gob.GobEncoder interface. The input shape,
// output dimension, name, and parameter values are encoded; caches,
// the scope, and the ParamSource are not. A Base without a ParamSource
// encodes no parameter values.
func (b *Base) GobEncode() ([]byte, error) {
	var params []float64
	if b.source != nil {
		var err error
		if params, err = b.ParamValues(nil); err != nil {
			return nil, errors.Wrap(err, "gobencode: could not get "+
				"parameters")
		}
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(baseState{
		InputShape: b.inputShape,
		OutputDim:  b.outputDim,
		Name:       b.name,
		Params:     params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gobencode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. Parameter values
// are assigned to the parameters of the Base's ParamSource, or kept
// until SetSource is called if it has none. All caches are reset.
func (b *Base) GobDecode(in []byte) error {
	var state baseState
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&state); err != nil {
		return errors.Wrap(err, "gobdecode")
	}
	b.inputShape = state.InputShape
	b.outputDim = state.OutputDim
	b.name = state.Name
	b.pending = nil
	b.resetCaches()

	if state.Params != nil {
		if b.source == nil {
			b.pending = state.Params
			return nil
		}
		if err := b.SetParamValues(state.Params, nil); err != nil {
			return errors.Wrap(err, "gobdecode")
		}
		b.resetCaches()
	}
	return nil
}
