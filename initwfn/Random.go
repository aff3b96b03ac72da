package initwfn

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// UniformConfig implements a configuration of a weight initializer that
// draws weights from a uniform distribution. A zero Seed draws from a
// time-seeded source.
type UniformConfig struct {
	Low, High float64
	Seed      int64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64, seed int64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type { return Uniform }

// Validate ensures the interval is not empty
func (u UniformConfig) Validate() error {
	if u.Low > u.High {
		return errors.Errorf("low %v > high %v", u.Low, u.High)
	}
	return nil
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (u UniformConfig) Create() G.InitWFn {
	if u.Seed == 0 {
		return G.Uniform(u.Low, u.High)
	}
	return sampled(distuv.Uniform{
		Min: u.Low,
		Max: u.High,
		Src: rand.NewSource(uint64(u.Seed)),
	})
}

// GaussianConfig implements a configuration of a weight initializer that
// draws weights from a gaussian distribution. A zero Seed draws from a
// time-seeded source.
type GaussianConfig struct {
	Mean, StdDev float64
	Seed         int64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64, seed int64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev, Seed: seed})
}

func (g GaussianConfig) Type() Type { return Gaussian }

func (g GaussianConfig) Validate() error {
	if g.StdDev < 0 {
		return errors.Errorf("negative standard deviation %v", g.StdDev)
	}
	return nil
}

func (g GaussianConfig) Create() G.InitWFn {
	if g.Seed == 0 {
		return G.Gaussian(g.Mean, g.StdDev)
	}
	return sampled(distuv.Normal{
		Mu:    g.Mean,
		Sigma: g.StdDev,
		Src:   rand.NewSource(uint64(g.Seed)),
	})
}

// sampled returns an InitWFn drawing each weight from dist. Successive
// calls continue to draw from the same source.
func sampled(dist distuv.Rander) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		size := tensor.Shape(s).TotalSize()
		switch dt {
		case tensor.Float64:
			values := make([]float64, size)
			for i := range values {
				values[i] = dist.Rand()
			}
			return values
		case tensor.Float32:
			values := make([]float32, size)
			for i := range values {
				values[i] = float32(dist.Rand())
			}
			return values
		default:
			panic(errors.Errorf("sampled: unsupported dtype %v", dt))
		}
	}
}
