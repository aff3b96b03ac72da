package scope

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Variable is a named, typed, and shaped parameter. Its value lives
// outside of any single graph, see Node().
type Variable struct {
	name  string
	scope string
	dtype tensor.Dtype
	shape tensor.Shape
	tags  Tags

	value *tensor.Dense
	nodes map[*G.ExprGraph]*G.Node
}

// Name returns the name of the Variable within its scope
func (v *Variable) Name() string {
	return v.name
}

// Scope returns the absolute path of the scope that owns the Variable
func (v *Variable) Scope() string {
	return v.scope
}

// Path returns the absolute path of the Variable, e.g.
// "/q_function/hidden_0/kernel".
func (v *Variable) Path() string {
	return join(v.scope, v.name)
}

// String implements the fmt.Stringer interface
func (v *Variable) String() string {
	return fmt.Sprintf("%s %v %v", v.Path(), v.dtype, v.shape)
}

func (v *Variable) Dtype() tensor.Dtype {
	return v.dtype
}

func (v *Variable) Shape() tensor.Shape {
	return v.shape.Clone()
}

// Size returns the number of scalars in the Variable
func (v *Variable) Size() int {
	return v.shape.TotalSize()
}

// Tag returns the value of a tag
func (v *Variable) Tag(tag string) bool {
	return v.tags[tag]
}

// SetTag sets the value of a tag
func (v *Variable) SetTag(tag string, value bool) {
	v.tags[tag] = value
}

// Tags returns a copy of the tags of the Variable
func (v *Variable) Tags() Tags {
	return v.tags.Clone()
}

// Matches returns whether the Variable has the same value for every
// tag in tags.
func (v *Variable) Matches(tags Tags) bool {
	for tag, want := range tags {
		if v.tags[tag] != want {
			return false
		}
	}
	return true
}

// Value returns the backing tensor of the Variable. Modifying it in
// place modifies the Variable in all graphs.
func (v *Variable) Value() *tensor.Dense {
	return v.value
}

// Data returns a copy of the Variable's values in row major order
func (v *Variable) Data() []float64 {
	out := make([]float64, v.Size())
	switch data := v.value.Data().(type) {
	case []float64:
		copy(out, data)
	case []float32:
		for i := range data {
			out[i] = float64(data[i])
		}
	}
	return out
}

// Assign copies a value into the Variable. The value must have the
// same number of elements as the Variable. If the dtypes differ, the
// value is converted to the Variable's dtype.
func (v *Variable) Assign(value tensor.Tensor) error {
	if value.Shape().TotalSize() != v.Size() {
		return errors.Errorf("assign %v: value of shape %v cannot be "+
			"assigned to variable of shape %v", v.Path(), value.Shape(),
			v.shape)
	}

	switch dst := v.value.Data().(type) {
	case []float64:
		switch src := value.Data().(type) {
		case []float64:
			copy(dst, src)
		case []float32:
			for i := range src {
				dst[i] = float64(src[i])
			}
		case float64:
			dst[0] = src
		default:
			return errors.Errorf("assign %v: unsupported dtype %v", v.Path(),
				value.Dtype())
		}
	case []float32:
		switch src := value.Data().(type) {
		case []float32:
			copy(dst, src)
		case []float64:
			for i := range src {
				dst[i] = float32(src[i])
			}
		case float32:
			dst[0] = src
		default:
			return errors.Errorf("assign %v: unsupported dtype %v", v.Path(),
				value.Dtype())
		}
	default:
		return errors.Errorf("assign %v: variable has unsupported dtype %v",
			v.Path(), v.dtype)
	}
	return nil
}

// Node returns the node of the Variable in the computational graph g,
// adding it to g if needed.
func (v *Variable) Node(g *G.ExprGraph) *G.Node {
	if n, ok := v.nodes[g]; ok {
		return n
	}

	n := G.NewTensor(
		g,
		v.dtype,
		v.shape.Dims(),
		G.WithShape(v.shape...),
		G.WithName(v.Path()),
		G.WithValue(v.value),
	)
	v.nodes[g] = n
	return n
}

// Graphs returns the number of graphs the Variable has been added to
func (v *Variable) Graphs() int {
	return len(v.nodes)
}

// Forget removes the cached node of the Variable in graph g. It should
// be called once g is no longer used so that the graph can be garbage
// collected.
func (v *Variable) Forget(g *G.ExprGraph) {
	delete(v.nodes, g)
}
