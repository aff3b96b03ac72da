// Package scope implements variable scopes for Gorgonia computational
// graphs.
//
// A Store owns every parameter (Variable) of a model. A Scope is a
// reference into a Store: a path, similar to a directory, plus a reuse
// flag. Entering a sub-scope with In() returns a new reference sharing
// the same Store:
//
//	store := scope.NewStore()
//	q, _ := store.Root().In("q_function")
//	layer, _ := q.In("hidden_0")
//	w, _ := layer.Variable("kernel", tensor.Float64, tensor.Shape{4, 32},
//		G.GlorotU(1.0), nil)
//
// Variables are created only when the Scope is not in reuse mode, and
// looked up only when it is. Variables are not tied to a single graph:
// Node() returns one node per *gorgonia.ExprGraph, and all nodes of a
// Variable are bound to the same backing tensor. Assigning to a
// Variable is therefore seen by every graph that uses it.
package scope
