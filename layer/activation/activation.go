// Package activation implements elementwise activation layers.
package activation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

const (
	LeakyReLUAlpha = 0.01

	seluAlpha = 1.6732632423543772848170429916717
	seluScale = 1.0507009873554804934193349852946
)

// Func is a scalar activation function.
type Func func(float64) float64

// LeakyReLU passes positive values and scales negative ones by LeakyReLUAlpha.
func LeakyReLU(x float64) float64 {
	if x < 0 {
		return LeakyReLUAlpha * x
	}
	return x
}

// SELU is the scaled exponential linear unit.
func SELU(x float64) float64 {
	if x > 0 {
		return seluScale * x
	}
	return seluScale * seluAlpha * (math.Exp(x) - 1)
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activation applies F to every value.
type Activation struct {
	F Func
}

// New wraps f as a layer.
func New(f Func) *Activation {
	return &Activation{F: f}
}

// Forward implements layer.Layer.
func (a *Activation) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(batch))
	for i, x := range batch {
		var y mat.Dense
		y.Apply(func(_, _ int, v float64) float64 { return a.F(v) }, x)
		out[i] = &y
	}
	return out, nil
}

// OutputShape implements layer.Layer.
func (a *Activation) OutputShape(length, channels int) (int, int) { return length, channels }

// Params implements layer.Layer.
func (a *Activation) Params() []layer.Param { return nil }
