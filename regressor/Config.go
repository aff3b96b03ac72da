package regressor

import (
	"github.com/pkg/errors"

	"github.com/samuelfneumann/goapprox/initwfn"
	"github.com/samuelfneumann/goapprox/network"
	"github.com/samuelfneumann/goapprox/solver"
)

// MLPConfig describes a regressor whose predictions are computed by a
// multi-layered perceptron.
type MLPConfig struct {
	Name string // Name of the regressor, also its scope

	// Network architecture
	HiddenSizes        []int
	HiddenActivation   *network.Activation
	HiddenWInit        *initwfn.InitWFn
	HiddenBInit        *initwfn.InitWFn
	OutputActivation   *network.Activation
	OutputWInit        *initwfn.InitWFn
	OutputBInit        *initwfn.InitWFn
	LayerNormalization bool

	// Whether inputs and outputs are standardized using the statistics
	// of the data passed to Fit
	NormalizeInputs  bool
	NormalizeOutputs bool

	// Training. Losses are averaged over each batch, so the solver's
	// batch size should usually be 1.
	Solver    *solver.Solver
	BatchSize int // Rows per gradient step, also rows per predict pass
	Epochs    int // Passes over the data per call to Fit
	Seed      uint64
}

// DefaultMLPConfig returns the default configuration of an MLP
// regressor with the given name
func DefaultMLPConfig(name string) MLPConfig {
	return MLPConfig{
		Name:             name,
		HiddenSizes:      []int{32, 32},
		HiddenActivation: network.TanH(),
		HiddenWInit:      initwfn.Must(initwfn.NewGlorotU(1.0)),
		HiddenBInit:      initwfn.Must(initwfn.NewZeroes()),
		OutputActivation: network.Nil(),
		OutputWInit:      initwfn.Must(initwfn.NewGlorotU(1.0)),
		OutputBInit:      initwfn.Must(initwfn.NewZeroes()),
		NormalizeInputs:  true,
		NormalizeOutputs: true,
		Solver:           solverMust(solver.NewDefaultAdam(1e-3, 1)),
		BatchSize:        32,
		Epochs:           1,
		Seed:             1,
	}
}

func solverMust(s *solver.Solver, err error) *solver.Solver {
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks that the configuration is valid
func (c MLPConfig) Validate() error {
	if c.Name == "" {
		return errors.New("regressor name must not be empty")
	}
	if c.Solver == nil {
		return errors.New("solver must be set")
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch size must be positive, got %v",
			c.BatchSize)
	}
	if c.Epochs < 1 {
		return errors.Errorf("epochs must be positive, got %v", c.Epochs)
	}
	return nil
}

// network returns the configuration of the MLP with the given number
// of outputs
func (c MLPConfig) network(outputs int) network.MLPConfig {
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
