// Package layer defines the 1-D network layer interface. An example is a
// (time steps × channels) matrix, a batch is a slice of examples.
package layer

import (
	"math/rand/v2"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when a layer receives an input it can't process.
var ErrShape = errors.New("layer input shape mismatch")

// Pass carries the state of one forward pass.
type Pass struct {
	Training bool

	// Rand drives dropout during training. Nil uses the global generator.
	Rand *rand.Rand
}

// Float64 draws from the pass generator.
func (p Pass) Float64() float64 {
	if p.Rand == nil {
		return rand.Float64()
	}
	return p.Rand.Float64()
}

// Param is a named weight matrix of a layer.
type Param struct {
	Name  string
	Value *mat.Dense
}

// Layer is a step of a network forward pass.
type Layer interface {

	// Forward maps every example of batch to an output example.
	Forward(batch []*mat.Dense, pass Pass) ([]*mat.Dense, error)

	// Params lists the weights, in a stable order.
	Params() []Param

	// OutputShape gives the output example shape for an input example shape.
	OutputShape(length, channels int) (int, int)
}

// Regularizer is implemented by layers adding a penalty to the loss.
type Regularizer interface {
	RegularizationLoss() float64
}

// Padding selects how a sliding window treats the ends of an example.
type Padding int

const (
	// Valid only places windows fully inside the example.
	Valid Padding = iota
	// Same pads so that a stride of 1 keeps the length.
	Same
)

// Sequential runs layers one after another.
type Sequential []Layer

// Forward implements Layer.
func (s Sequential) Forward(batch []*mat.Dense, pass Pass) ([]*mat.Dense, error) {
	var err error
	for i, l := range s {
		batch, err = l.Forward(batch, pass)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%T)", i, l)
		}
	}
	return batch, nil
}

// Params implements Layer, prefixing names with the layer position.
func (s Sequential) Params() []Param {
	var out []Param
	for i, l := range s {
		for _, p := range l.Params() {
			out = append(out, Param{Name: strconv.Itoa(i) + "/" + p.Name, Value: p.Value})
		}
	}
	return out
}

// OutputShape implements Layer.
func (s Sequential) OutputShape(length, channels int) (int, int) {
	for _, l := range s {
		length, channels = l.OutputShape(length, channels)
	}
	return length, channels
}

// RegularizationLoss implements Regularizer.
func (s Sequential) RegularizationLoss() float64 {
	return RegularizationLoss(s...)
}

// RegularizationLoss sums the penalties of the layers that have one.
func RegularizationLoss(layers ...Layer) float64 {
	var sum float64
	for _, l := range layers {
		if r, ok := l.(Regularizer); ok {
			sum += r.RegularizationLoss()
		}
	}
	return sum
}

// CheckChannels fails with ErrShape unless every example has channels columns.
func CheckChannels(batch []*mat.Dense, channels int) error {
	for i, x := range batch {
		if _, c := x.Dims(); c != channels {
			return errors.Wrapf(ErrShape, "example %d has %d channels, expected %d", i, c, channels)
		}
	}
	return nil
}
