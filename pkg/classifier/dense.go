package classifier

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type activation func(v []float64)

var activations = map[string]activation{
	"":        func([]float64) {},
	"linear":  func([]float64) {},
	"relu":    relu,
	"sigmoid": sigmoid,
	"tanh":    tanhAct,
	"softmax": softmax,
}

func relu(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

func sigmoid(v []float64) {
	for i, x := range v {
		v[i] = 1 / (1 + math.Exp(-x))
	}
}

func tanhAct(v []float64) {
	for i, x := range v {
		v[i] = math.Tanh(x)
	}
}

// softmax subtracts the max before exponentiating to avoid overflow.
func softmax(v []float64) {
	peak := floats.Max(v)
	for i, x := range v {
		v[i] = math.Exp(x - peak)
	}
	floats.Scale(1/floats.Sum(v), v)
}

type denseLayer struct {
	info LayerInfo
	w    *mat.Dense    // [outputs, inputs]
	b    *mat.VecDense // [outputs]
	act  activation
}

// Dense evaluates a ModelSpec with gonum. Weights are never mutated after
// construction, so Forward is safe for concurrent use.
type Dense struct {
	in, out int
	labels  []string
	layers  []denseLayer
	infos   []LayerInfo
}

// NewDense builds a Dense backend from a validated spec.
func NewDense(spec *ModelSpec) (*Dense, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	d := &Dense{in: spec.InputWidth, labels: slices.Clone(spec.Labels)}
	width := spec.InputWidth
	for i, l := range spec.Layers {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", l.Kind, i)
		}
		if l.Kind == KindDropout {
			d.infos = append(d.infos, LayerInfo{Name: name, Kind: KindDropout, Inputs: width, Outputs: width})
			continue
		}
		out := len(l.Bias)
		w := mat.NewDense(out, width, nil)
		for r, row := range l.Weights {
			for c, v := range row {
				w.Set(c, r, float64(v))
			}
		}
		b := mat.NewVecDense(out, nil)
		for j, v := range l.Bias {
			b.SetVec(j, float64(v))
		}
		act := l.Activation
		if act == "" {
			act = "linear"
		}
		info := LayerInfo{Name: name, Kind: KindDense, Activation: act, Inputs: width, Outputs: out}
		d.layers = append(d.layers, denseLayer{info: info, w: w, b: b, act: activations[l.Activation]})
		d.infos = append(d.infos, info)
		width = out
	}
	d.out = width
	return d, nil
}

func (d *Dense) InputWidth() int     { return d.in }
func (d *Dense) OutputWidth() int    { return d.out }
func (d *Dense) ConcurrentSafe() bool { return true }
func (d *Dense) Labels() []string    { return slices.Clone(d.labels) }
func (d *Dense) Layers() []LayerInfo { return slices.Clone(d.infos) }
func (d *Dense) Close() error        { return nil }

// Forward runs the network on in.
func (d *Dense) Forward(ctx context.Context, in []float32) ([]float32, error) {
	if len(in) != d.in {
		return nil, &ShapeMismatchError{Got: len(in), Want: d.in}
	}
	x := mat.NewVecDense(d.in, nil)
	for i, v := range in {
		x.SetVec(i, float64(v))
	}
	for _, l := range d.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y := mat.NewVecDense(l.info.Outputs, nil)
		y.MulVec(l.w, x)
		y.AddVec(y, l.b)
		l.act(y.RawVector().Data)
		x = y
	}
	out := make([]float32, d.out)
	for i := range out {
		out[i] = float32(x.AtVec(i))
	}
	return out, nil
}
