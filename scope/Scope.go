package scope

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Scope is a reference to a path in a Store. Scopes are cheap values:
// In(), Reuse() and Unique() return new references that share the
// same Store.
type Scope struct {
	path  string
	reuse bool
	store *Store
}

// Path returns the absolute path of the Scope
func (s *Scope) Path() string {
	return s.path
}

// Name returns the last element of the Scope's path
func (s *Scope) Name() string {
	i := strings.LastIndex(s.path, Separator)
	return s.path[i+1:]
}

// Store returns the Store that the Scope refers to
func (s *Scope) Store() *Store {
	return s.store
}

// String implements the fmt.Stringer interface
func (s *Scope) String() string {
	return fmt.Sprintf("Scope(%s, reuse=%t)", s.path, s.reuse)
}

// In returns a new reference to the Scope's Store with the extra
// given scope level. The reuse flag is inherited.
func (s *Scope) In(name string) (*Scope, error) {
	if name == "" {
		return nil, errors.New("in: cannot use empty scope name")
	}
	if strings.Contains(name, Separator) {
		return nil, errors.Errorf("in: cannot use separator %q in scope "+
			"name %q", Separator, name)
	}
	return &Scope{path: join(s.path, name), reuse: s.reuse,
		store: s.store}, nil
}

// Reuse returns a new reference to the Scope in reuse mode: Variable()
// returns existing variables and fails for missing ones.
func (s *Scope) Reuse() *Scope {
	if s.reuse {
		return s
	}
	return &Scope{path: s.path, reuse: true, store: s.store}
}

// Unique returns a new reference to the Scope that only creates new
// variables.
func (s *Scope) Unique() *Scope {
	if !s.reuse {
		return s
	}
	return &Scope{path: s.path, reuse: false, store: s.store}
}

// IsReuse returns whether the Scope is in reuse mode
func (s *Scope) IsReuse() bool {
	return s.reuse
}

// Variable creates, or returns when in reuse mode, the variable with
// the given name in the Scope. Tags are merged on top of the default
// tags, which mark the variable as trainable. Tags and the initializer
// are ignored when reusing.
func (s *Scope) Variable(name string, dt tensor.Dtype, shape tensor.Shape,
	init G.InitWFn, tags Tags) (*Variable, error) {
	if name == "" || strings.Contains(name, Separator) {
		return nil, errors.Errorf("variable: invalid name %q", name)
	}
	path := join(s.path, name)
	v, found := s.store.Lookup(path)

	if s.reuse {
		if !found {
			return nil, errors.Errorf("variable %q does not exist and "+
				"cannot be reused", path)
		}
		if !v.shape.Eq(shape) {
			return nil, errors.Errorf("variable %q has shape %v, cannot "+
				"reuse with shape %v", path, v.shape, shape)
		}
		if v.dtype != dt {
			return nil, errors.Errorf("variable %q has dtype %v, cannot "+
				"reuse with dtype %v", path, v.dtype, dt)
		}
		return v, nil
	}

	if found {
		return nil, errors.Errorf("variable %q already exists, reuse the "+
			"scope to share it", path)
	}
	return s.store.newVariable(s.path, name, dt, shape, init, tags)
}

// Variables returns the variables within the Scope and all nested
// Scopes that match tags.
func (s *Scope) Variables(tags Tags) []*Variable {
	return s.store.Filter(s.path, tags)
}
