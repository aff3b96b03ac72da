package scope

import (
	"strings"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/goapprox/initwfn"
)

// Separator is used between levels of scope. Scope names cannot use
// this string.
const Separator = "/"

// Store holds all Variables created through the Scopes that refer to
// it.
type Store struct {
	variables []*Variable
	byPath    map[string]*Variable
}

// NewStore returns a new, empty Store
func NewStore() *Store {
	return &Store{byPath: make(map[string]*Variable)}
}

// Root returns a Scope referring to the root of the Store
func (s *Store) Root() *Scope {
	return &Scope{path: Separator, store: s}
}

// Variables returns all Variables in the Store in creation order
func (s *Store) Variables() []*Variable {
	out := make([]*Variable, len(s.variables))
	copy(out, s.variables)
	return out
}

// Len returns the number of Variables in the Store
func (s *Store) Len() int {
	return len(s.variables)
}

// Lookup returns the Variable at an absolute path
func (s *Store) Lookup(path string) (*Variable, bool) {
	v, ok := s.byPath[path]
	return v, ok
}

// Filter returns the Variables, in creation order, whose scope is
// prefix or is nested under prefix, and whose tags match tags.
func (s *Store) Filter(prefix string, tags Tags) []*Variable {
	var out []*Variable
	for _, v := range s.variables {
		if within(v.scope, prefix) && v.Matches(tags) {
			out = append(out, v)
		}
	}
	return out
}

// Forget removes the nodes of all Variables in graph g
func (s *Store) Forget(g *G.ExprGraph) {
	for _, v := range s.variables {
		v.Forget(g)
	}
}

// newVariable creates and registers a new Variable
func (s *Store) newVariable(scope, name string, dt tensor.Dtype,
	shape tensor.Shape, init G.InitWFn, tags Tags) (*Variable, error) {
	if init == nil {
		init = G.Zeroes()
	}

	allTags := Tags{Trainable: true}
	for k, val := range tags {
		allTags[k] = val
	}

	value := initwfn.Fill(init, dt, shape...)
	if value.Dtype() != dt {
		return nil, errors.Errorf("new variable %v: initializer produced "+
			"dtype %v, expected %v", join(scope, name), value.Dtype(), dt)
	}

	v := &Variable{
		name:  name,
		scope: scope,
		dtype: dt,
		shape: shape.Clone(),
		tags:  allTags,
		value: value,
		nodes: make(map[*G.ExprGraph]*G.Node),
	}
	s.variables = append(s.variables, v)
	s.byPath[v.Path()] = v
	klog.V(2).Infof("created variable %v", v)

	return v, nil
}

// join joins a scope path and a name
func join(scope, name string) string {
	if scope == Separator {
		return Separator + name
	}
	return scope + Separator + name
}

// within returns whether scope is equal to, or nested under, prefix
func within(scope, prefix string) bool {
	if prefix == "" || prefix == Separator || scope == prefix {
		return true
	}
	return strings.HasPrefix(scope, prefix+Separator)
}
