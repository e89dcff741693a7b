// Package pool1d implements max and average pooling along time.
package pool1d

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

// Kind is the pooling reduction.
type Kind int

const (
	Max Kind = iota
	Average
)

// Pool1D reduces windows of Size time steps, with a stride of Size. Padded
// positions are never part of a reduction.
type Pool1D struct {
	Kind    Kind
	Size    int
	Padding layer.Padding
}

// New creates a pooling layer.
func New(kind Kind, size int, padding layer.Padding) (*Pool1D, error) {
	if size <= 0 {
		return nil, errors.Errorf("pool1d: size must be positive, got %d", size)
	}
	return &Pool1D{Kind: kind, Size: size, Padding: padding}, nil
}

// MustNew is New that panics on error.
func MustNew(kind Kind, size int, padding layer.Padding) *Pool1D {
	o, err := New(kind, size, padding)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// OutputShape implements layer.Layer.
func (p *Pool1D) OutputShape(length, channels int) (int, int) {
	if p.Padding == layer.Same {
		return (length + p.Size - 1) / p.Size, channels
	}
	return length / p.Size, channels
}

func (p *Pool1D) leftPadding(length int) int {
	if p.Padding == layer.Valid {
		return 0
	}
	out, _ := p.OutputShape(length, 0)
	total := out*p.Size - length
	if total < 0 {
		total = 0
	}
	return total / 2
}

// Forward implements layer.Layer.
func (p *Pool1D) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(batch))
	for i, x := range batch {
		length, channels := x.Dims()
		outLength, _ := p.OutputShape(length, channels)
		if outLength <= 0 {
			return nil, errors.Wrapf(layer.ErrShape, "pool1d: length %d shorter than pool size %d", length, p.Size)
		}
		left := p.leftPadding(length)
		y := mat.NewDense(outLength, channels, nil)
		for t := 0; t < outLength; t++ {
			start := max(t*p.Size-left, 0)
			end := min(t*p.Size-left+p.Size, length)
			row := y.RawRowView(t)
			for c := 0; c < channels; c++ {
				row[c] = p.reduce(x, start, end, c)
			}
		}
		out[i] = y
	}
	return out, nil
}

func (p *Pool1D) reduce(x *mat.Dense, start, end, c int) float64 {
	if p.Kind == Average {
		var sum float64
		for t := start; t < end; t++ {
			sum += x.At(t, c)
		}
		return sum / float64(end-start)
	}
	m := math.Inf(-1)
	for t := start; t < end; t++ {
		m = math.Max(m, x.At(t, c))
	}
	return m
}

// Params implements layer.Layer.
func (p *Pool1D) Params() []layer.Param { return nil }
