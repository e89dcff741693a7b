// Package batchnorm implements per channel batch normalization.
package batchnorm

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

const (
	DefaultEpsilon  = 1e-3
	DefaultMomentum = 0.99
)

// BatchNorm normalizes every channel over the batch and time axes. Outside
// training the moving statistics are used instead of the batch ones.
type BatchNorm struct {
	Channels int
	Epsilon  float64
	Momentum float64

	Gamma          *mat.Dense // 1 × Channels
	Beta           *mat.Dense
	MovingMean     *mat.Dense
	MovingVariance *mat.Dense

	mu sync.Mutex
}

// New creates a batch normalization with unit scale and zero shift.
func New(channels int) (*BatchNorm, error) {
	if channels <= 0 {
		return nil, errors.Errorf("batchnorm: channels must be positive, got %d", channels)
	}
	ones := func() *mat.Dense {
		m := mat.NewDense(1, channels, nil)
		for c := 0; c < channels; c++ {
			m.Set(0, c, 1)
		}
		return m
	}
	return &BatchNorm{
		Channels:       channels,
		Epsilon:        DefaultEpsilon,
		Momentum:       DefaultMomentum,
		Gamma:          ones(),
		Beta:           mat.NewDense(1, channels, nil),
		MovingMean:     mat.NewDense(1, channels, nil),
		MovingVariance: ones(),
	}, nil
}

// MustNew is New that panics on error.
func MustNew(channels int) *BatchNorm {
	o, err := New(channels)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// OutputShape implements layer.Layer.
func (b *BatchNorm) OutputShape(length, channels int) (int, int) { return length, channels }

// Forward implements layer.Layer. A training pass updates the moving
// statistics.
func (b *BatchNorm) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	if err := layer.CheckChannels(batch, b.Channels); err != nil {
		return nil, err
	}
	var mean, variance []float64
	if pass.Training {
		mean, variance = b.batchStatistics(batch)
		b.mu.Lock()
		for c := 0; c < b.Channels; c++ {
			b.MovingMean.Set(0, c, b.MovingMean.At(0, c)*b.Momentum+mean[c]*(1-b.Momentum))
			b.MovingVariance.Set(0, c, b.MovingVariance.At(0, c)*b.Momentum+variance[c]*(1-b.Momentum))
		}
		b.mu.Unlock()
	} else {
		b.mu.Lock()
		mean = append([]float64(nil), b.MovingMean.RawRowView(0)...)
		variance = append([]float64(nil), b.MovingVariance.RawRowView(0)...)
		b.mu.Unlock()
	}
	scale := make([]float64, b.Channels)
	shift := make([]float64, b.Channels)
	for c := range scale {
		scale[c] = b.Gamma.At(0, c) / math.Sqrt(variance[c]+b.Epsilon)
		shift[c] = b.Beta.At(0, c) - mean[c]*scale[c]
	}
	out := make([]*mat.Dense, len(batch))
	for i, x := range batch {
		y := mat.DenseCopyOf(x)
		rows, _ := y.Dims()
		for t := 0; t < rows; t++ {
			row := y.RawRowView(t)
			for c := range row {
				row[c] = row[c]*scale[c] + shift[c]
			}
		}
		out[i] = y
	}
	return out, nil
}

func (b *BatchNorm) batchStatistics(batch []*mat.Dense) (mean, variance []float64) {
	mean = make([]float64, b.Channels)
	variance = make([]float64, b.Channels)
	var n float64
	for _, x := range batch {
		rows, _ := x.Dims()
		n += float64(rows)
		for t := 0; t < rows; t++ {
			for c, v := range x.RawRowView(t) {
				mean[c] += v
			}
		}
	}
	if n == 0 {
		return mean, variance
	}
	for c := range mean {
		mean[c] /= n
	}
	for _, x := range batch {
		rows, _ := x.Dims()
		for t := 0; t < rows; t++ {
			for c, v := range x.RawRowView(t) {
				d := v - mean[c]
				variance[c] += d * d
			}
		}
	}
	for c := range variance {
		variance[c] /= n
	}
	return mean, variance
}

// Params implements layer.Layer.
func (b *BatchNorm) Params() []layer.Param {
	return []layer.Param{
		{Name: "gamma", Value: b.Gamma},
		{Name: "beta", Value: b.Beta},
		{Name: "moving_mean", Value: b.MovingMean},
		{Name: "moving_variance", Value: b.MovingVariance},
	}
}
