package network

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goapprox/scope"
)

// layerNormEpsilon is added to the variance before normalizing
const layerNormEpsilon = 1e-12

// denseLayer implements a fully connected layer of a feed forward
// neural network, optionally followed by layer normalization. The
// layer owns no nodes, only the scope.Variables it creates on its
// first build. Biases and layer normalization parameters have shape
// (1, units) so they can be broadcast along the batch dimension.
type denseLayer struct {
	name      string
	units     int
	wInit     G.InitWFn
	bInit     G.InitWFn
	act       *Activation
	layerNorm bool

	kernel, bias *scope.Variable
	gamma, beta  *scope.Variable
}

// build adds the forward pass of the layer on x to x's graph. The
// layer's variables are created or reused in the sub-scope of sc with
// the layer's name, depending on whether sc is in reuse mode.
func (d *denseLayer) build(sc *scope.Scope, x *G.Node) (*G.Node, error) {
	ls, err := sc.In(d.name)
	if err != nil {
		return nil, err
	}
	features := x.Shape()[1]
	dt := x.Dtype()

	d.kernel, err = ls.Variable("kernel", dt, tensor.Shape{features, d.units},
		d.wInit, scope.Tags{scope.Regularizable: true})
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v", d.name)
	}
	d.bias, err = ls.Variable("bias", dt, tensor.Shape{1, d.units},
		d.bInit, scope.Tags{scope.Regularizable: false})
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v", d.name)
	}

	g := x.Graph()
	out, err := G.Mul(x, d.kernel.Node(g))
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v: kernel", d.name)
	}
	// Broadcast the bias weights to all samples along the batch
	// dimension
	out, err = G.BroadcastAdd(out, d.bias.Node(g), nil, []byte{0})
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v: bias", d.name)
	}

	if out, err = d.act.fwd(out); err != nil {
		return nil, errors.Wrapf(err, "layer %v: activation %v", d.name,
			d.act)
	}

	if d.layerNorm {
		return d.normalize(ls, out)
	}
	return out, nil
}

// normalize adds layer normalization of each row of x to the graph:
//
//	gamma * (x - mean(x)) / sqrt(var(x) + eps) + beta
func (d *denseLayer) normalize(ls *scope.Scope, x *G.Node) (*G.Node, error) {
	ns, err := ls.In("layer_norm")
	if err != nil {
		return nil, err
	}
	dt := x.Dtype()
	noReg := scope.Tags{scope.Regularizable: false}

	d.gamma, err = ns.Variable("gamma", dt, tensor.Shape{1, d.units},
		G.Ones(), noReg)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v", d.name)
	}
	d.beta, err = ns.Variable("beta", dt, tensor.Shape{1, d.units},
		G.Zeroes(), noReg)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %v", d.name)
	}

	g := x.Graph()
	mean := G.Must(G.Mean(x, 1))
	centred := G.Must(G.BroadcastSub(x, mean, nil, []byte{1}))

	variance := G.Must(G.Mean(G.Must(G.Square(centred)), 1))
	eps := G.NewConstant(layerNormEpsilonOf(dt))
	std := G.Must(G.Sqrt(G.Must(G.Add(variance, eps))))

	normed := G.Must(G.BroadcastHadamardDiv(centred, std, nil, []byte{1}))
	normed = G.Must(G.BroadcastHadamardProd(normed, d.gamma.Node(g), nil,
		[]byte{0}))
	return G.BroadcastAdd(normed, d.beta.Node(g), nil, []byte{0})
}

// layerNormEpsilonOf returns the layer normalization epsilon as a
// scalar of dtype dt
func layerNormEpsilonOf(dt tensor.Dtype) interface{} {
	if dt == tensor.Float32 {
		return float32(layerNormEpsilon)
	}
	return layerNormEpsilon
}

// variables returns the variables of the layer, in creation order
func (d *denseLayer) variables() []*scope.Variable {
	out := []*scope.Variable{d.kernel, d.bias}
	if d.layerNorm {
		out = append(out, d.gamma, d.beta)
	}
	return out
}
