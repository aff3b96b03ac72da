package qfunction

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/goapprox/initwfn"
	"github.com/samuelfneumann/goapprox/network"
	"github.com/samuelfneumann/goapprox/scope"
)

// Config implements a configuration for a DiscreteMLP Q-function
type Config struct {
	// Name of the Q-function, also its variable scope
	Name string

	HiddenSizes      []int               // Units in each hidden layer
	HiddenActivation *network.Activation // Nil is linear
	HiddenWInit      *initwfn.InitWFn
	HiddenBInit      *initwfn.InitWFn

	OutputActivation *network.Activation // Nil is linear
	OutputWInit      *initwfn.InitWFn
	OutputBInit      *initwfn.InitWFn

	LayerNormalization bool

	// Number of observations in the batch of the obs input
	Batch int
}

// DefaultConfig returns the default configuration: two hidden ReLU
// layers of 32 units with Glorot uniform weights and zero biases, and
// a linear output layer.
func DefaultConfig() Config {
	return Config{
		Name:             "discrete_mlp_q_function",
		HiddenSizes:      []int{32, 32},
		HiddenActivation: network.ReLU(),
		HiddenWInit:      initwfn.Must(initwfn.NewGlorotU(1.0)),
		HiddenBInit:      initwfn.Must(initwfn.NewZeroes()),
		OutputActivation: network.Nil(),
		OutputWInit:      initwfn.Must(initwfn.NewGlorotU(1.0)),
		OutputBInit:      initwfn.Must(initwfn.NewZeroes()),
		Batch:            1,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DiscreteMLP
func (c Config) Validate() error {
	if c.Name == "" || strings.Contains(c.Name, scope.Separator) {
		return errors.Errorf("invalid name %q", c.Name)
	}
	if c.Batch < 1 {
		return errors.Errorf("batch must be positive\n\twant(>0)\n\thave(%v)",
			c.Batch)
	}
	return c.network(1).Validate()
}

// network returns the configuration of the MLP with outputs outputs
func (c Config) network(outputs int) network.MLPConfig {
	return network.MLPConfig{
		OutputDim:          outputs,
		HiddenSizes:        c.HiddenSizes,
		HiddenActivation:   c.HiddenActivation,
		HiddenWInit:        c.HiddenWInit,
		HiddenBInit:        c.HiddenBInit,
		OutputActivation:   c.OutputActivation,
		OutputWInit:        c.OutputWInit,
		OutputBInit:        c.OutputBInit,
		LayerNormalization: c.LayerNormalization,
	}
}
