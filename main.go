// Command goapprox builds a Q-function for a small discrete-action
// environment and fits a regressor to synthetic data, checkpointing it
// as it trains.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	env "github.com/samuelfneumann/goapprox/environment"
	"github.com/samuelfneumann/goapprox/experiment/checkpointer"
	"github.com/samuelfneumann/goapprox/qfunction"
	"github.com/samuelfneumann/goapprox/regressor"
	"github.com/samuelfneumann/goapprox/scope"
	"github.com/samuelfneumann/goapprox/utils/progressbar"
)

var (
	flagConfig     = flag.String("config", "", "JSON configuration file. If empty, the default configuration is used.")
	flagCheckpoint = flag.String("checkpoint", "", "Checkpoint the regressor to this file. If empty, no checkpoints are saved.")
	flagEvery      = flag.Int("checkpoint_every", 10, "Number of epochs between checkpoints.")
	flagEpochs     = flag.Int("epochs", 100, "Number of training epochs.")
)

// config configures the demo
type config struct {
	QFunction qfunction.Config
	Regressor regressor.MLPConfig

	ObservationDim int    // Features of the environment's observations
	Actions        int    // Actions in the environment
	Rows           int    // Rows of synthetic training data
	Seed           uint64 // Seed of the synthetic data
}

func defaultConfig() config {
	return config{
		QFunction:      qfunction.DefaultConfig(),
		Regressor:      regressor.DefaultMLPConfig("regressor"),
		ObservationDim: 4,
		Actions:        3,
		Rows:           1024,
		Seed:           1,
	}
}

// loadConfig decodes the JSON file filename over the default config
func loadConfig(filename string) (config, error) {
	c := defaultConfig()
	if filename == "" {
		return c, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return config{}, errors.Wrap(err, "loadConfig")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return config{}, errors.Wrapf(err, "loadConfig: could not decode %v",
			filename)
	}
	return c, nil
}

// syntheticData returns inputs uniform in [-1, 1] with labels
// sin(πx₀) + Σᵢ xᵢ
func syntheticData(rows, cols int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	xs := mat.NewDense(rows, cols, nil)
	ys := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		y := 0.0
		for j := 0; j < cols; j++ {
			x := rng.Float64()*2 - 1
			xs.Set(i, j, x)
			y += x
		}
		ys.Set(i, 0, y+math.Sin(math.Pi*xs.At(i, 0)))
	}
	return xs, ys
}

func run(c config) error {
	obs, err := env.NewBox(env.Observation, c.ObservationDim, -1, 1)
	if err != nil {
		return err
	}
	action, err := env.NewDiscrete(env.Action, c.Actions)
	if err != nil {
		return err
	}
	e, err := env.NewEnvSpec(obs, action)
	if err != nil {
		return err
	}

	q, err := qfunction.NewDiscreteMLP(e, c.QFunction)
	if err != nil {
		return err
	}
	defer q.Close()
	qParams, err := q.ParamValues(nil)
	if err != nil {
		return err
	}
	fmt.Printf("%v: %v parameters, q-values %v\n", q.Scope().Path(),
		humanize.Comma(int64(len(qParams))), q.QVals().Shape())

	// Each call to Fit performs a single epoch so that progress can be
	// displayed
	c.Regressor.Epochs = 1
	r, err := regressor.NewContinuousMLPRegressor([]int{c.ObservationDim}, 1,
		c.Regressor)
	if err != nil {
		return err
	}
	defer r.Close()
	trainable, err := r.ParamValues(regressor.Tags{scope.Trainable: true})
	if err != nil {
		return err
	}
	fmt.Printf("%v: %v trainable parameters\n", r.Scope().Path(),
		humanize.Comma(int64(len(trainable))))

	var ckpt checkpointer.Checkpointer
	if *flagCheckpoint != "" {
		ckpt, err = checkpointer.NewNStep(*flagEvery, r, func() string {
			return *flagCheckpoint
		})
		if err != nil {
			return err
		}
	}

	bar, err := progressbar.New(os.Stdout, 40, *flagEpochs, "epochs")
	if err != nil {
		return err
	}
	xs, ys := syntheticData(c.Rows, c.ObservationDim, c.Seed)
	for epoch := 1; epoch <= *flagEpochs; epoch++ {
		if err := r.Fit(xs, ys); err != nil {
			return err
		}
		if err := bar.Increment(); err != nil {
			return err
		}
		if ckpt != nil {
			if err := ckpt.Checkpoint(epoch); err != nil {
				return err
			}
		}
	}
	if err := bar.Close(); err != nil {
		return err
	}
	fmt.Printf("final batch loss: %.6f\n", r.Loss())

	if *flagCheckpoint != "" {
		if err := checkpointer.Save(*flagCheckpoint, r); err != nil {
			return err
		}
		var restored regressor.ContinuousMLPRegressor
		if err := checkpointer.Load(*flagCheckpoint, &restored); err != nil {
			return err
		}
		defer restored.Close()
		klog.Infof("restored %v from %v", restored.Name(), *flagCheckpoint)
	}
	return nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	c, err := loadConfig(*flagConfig)
	if err != nil {
		klog.Exitf("%+v", err)
	}
	if err := run(c); err != nil {
		klog.Exitf("%+v", err)
	}
}
