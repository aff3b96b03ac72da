package environment

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// String implements the fmt.Stringer interface
func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	case Discount:
		return "Discount"
	case Reward:
		return "Reward"
	}
	return fmt.Sprintf("SpecType(%d)", int(s))
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment.
//
// Discrete actions are one-dimensional and enumerated from LowerBound to
// UpperBound inclusive.
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) (Spec, error) {
	if shape.Len() != lowerBound.Len() {
		return Spec{}, errors.Errorf("newSpec: shape length %v must match "+
			"lower bounds length %v", shape.Len(), lowerBound.Len())
	}
	if shape.Len() != upperBound.Len() {
		return Spec{}, errors.Errorf("newSpec: shape length %v must match "+
			"upper bounds length %v", shape.Len(), upperBound.Len())
	}
	for i := 0; i < lowerBound.Len(); i++ {
		if lowerBound.AtVec(i) > upperBound.AtVec(i) {
			return Spec{}, errors.Errorf("newSpec: lower bound %v > upper "+
				"bound %v at index %v", lowerBound.AtVec(i),
				upperBound.AtVec(i), i)
		}
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}, nil
}

// NewBox returns a continuous Spec of dims dimensions with all
// dimensions bounded in [low, high].
func NewBox(t SpecType, dims int, low, high float64) (Spec, error) {
	shape := mat.NewVecDense(dims, nil)
	lower := mat.NewVecDense(dims, nil)
	upper := mat.NewVecDense(dims, nil)
	for i := 0; i < dims; i++ {
		shape.SetVec(i, 1)
		lower.SetVec(i, low)
		upper.SetVec(i, high)
	}
	return NewSpec(shape, t, lower, upper, Continuous)
}

// NewDiscrete returns a one-dimensional discrete Spec that enumerates n
// values 0, 1, ..., n-1.
func NewDiscrete(t SpecType, n int) (Spec, error) {
	if n < 1 {
		return Spec{}, errors.Errorf("newDiscrete: must have at least 1 "+
			"value but got %v", n)
	}
	return NewSpec(
		mat.NewVecDense(1, []float64{1}),
		t,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(n - 1)}),
		Discrete,
	)
}

// Dims returns the number of dimensions described by the Spec
func (s Spec) Dims() int {
	if s.Shape == nil {
		return 0
	}
	return s.Shape.Len()
}

// FlatDim returns the dimension of the space when flattened. For
// discrete spaces this is the number of enumerated values, which is
// the size of a one-hot encoding of a value. For continuous spaces it
// is the number of dimensions.
func (s Spec) FlatDim() int {
	if s.Cardinality == Discrete {
		n := 1
		for i := 0; i < s.Dims(); i++ {
			n *= int(s.UpperBound.AtVec(i)-s.LowerBound.AtVec(i)) + 1
		}
		return n
	}
	return s.Dims()
}
