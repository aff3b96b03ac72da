// Package environment outlines the specifications that describe the
// spaces of an environment. Function approximators only need the
// layout of observations and actions, so no simulation is provided here.
package environment

import "github.com/pkg/errors"

// Specer describes an environment through the layout of its
// observations and actions.
type Specer interface {
	ObservationSpec() Spec
	ActionSpec() Spec
}

// EnvSpec is the environment specification consumed by function
// approximators. It satisfies Specer.
type EnvSpec struct {
	Observation Spec
	Action      Spec
}

// NewEnvSpec returns a new EnvSpec
func NewEnvSpec(observation, action Spec) (EnvSpec, error) {
	if observation.Type != Observation {
		return EnvSpec{}, errors.Errorf("newEnvSpec: observation spec has "+
			"type %v", observation.Type)
	}
	if action.Type != Action {
		return EnvSpec{}, errors.Errorf("newEnvSpec: action spec has type %v",
			action.Type)
	}
	return EnvSpec{observation, action}, nil
}

// ObservationSpec returns the observation specification
func (e EnvSpec) ObservationSpec() Spec {
	return e.Observation
}

// ActionSpec returns the action specification
func (e EnvSpec) ActionSpec() Spec {
	return e.Action
}

// SpecOf returns the EnvSpec of any Specer
func SpecOf(e Specer) EnvSpec {
	return EnvSpec{e.ObservationSpec(), e.ActionSpec()}
}
