package scope

import (
	"fmt"
	"sort"
	"strings"
)

// Common tags
const (
	Trainable     = "trainable"
	Regularizable = "regularizable"
)

// Tags are boolean attributes attached to a Variable. When used as a
// filter, a Variable matches if each tag in the filter has the same
// value on the Variable. An absent tag on a Variable is false.
type Tags map[string]bool

// Clone returns a copy of the tags
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Key returns a canonical representation of the tags, sorted by tag
// name, e.g. "regularizable=true,trainable=false". Tags with equal
// contents have equal keys regardless of insertion order.
func (t Tags) Key() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%t", k, t[k])
	}
	return strings.Join(pairs, ",")
}
