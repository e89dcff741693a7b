// Package residual implements the bottleneck residual blocks the light curve
// networks are stacked from.
package residual

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
	"github.com/neurlang/ramjet/layer/activation"
	"github.com/neurlang/ramjet/layer/batchnorm"
	"github.com/neurlang/ramjet/layer/conv1d"
	"github.com/neurlang/ramjet/layer/dropout"
	"github.com/neurlang/ramjet/layer/pool1d"
)

// Options configure a block. The zero value is a block keeping its channel
// count, without pooling, dropout or weight penalty, with batch normalization.
type Options struct {
	// InputChannels defaults to the output channels.
	InputChannels int

	// PoolingSize enables same padded max pooling on both branches.
	PoolingSize int

	DisableBatchNormalization bool
	DropoutRate               float64
	L2                        float64
}

// Block adds a bottleneck convolution branch to a shortcut. When the block
// widens, the shortcut is extended by a pointwise projection of the input to
// the missing channels.
type Block struct {
	In, Out int

	Residual   layer.Sequential
	Pool       *pool1d.Pool1D
	Projection *conv1d.Conv1D
	Activation *activation.Activation
}

type flavor struct {
	activation activation.Func
	init       layer.Initializer
	batchNorm  bool
	dropout    func(rate float64) (layer.Layer, error)
}

// NewBlock creates a leaky ReLU block with batch normalization and spatial
// dropout.
func NewBlock(outputChannels int, opts Options, rng *rand.Rand) (*Block, error) {
	return newBlock(outputChannels, opts, flavor{
		activation: activation.LeakyReLU,
		init:       layer.GlorotUniform,
		batchNorm:  !opts.DisableBatchNormalization,
		dropout: func(rate float64) (layer.Layer, error) {
			return dropout.NewSpatial(rate)
		},
	}, rng)
}

// NewSeluBlock creates a self normalizing block with SELU activations, LeCun
// normal weights and alpha dropout. It never uses batch normalization.
func NewSeluBlock(outputChannels int, opts Options, rng *rand.Rand) (*Block, error) {
	return newBlock(outputChannels, opts, flavor{
		activation: activation.SELU,
		init:       layer.LeCunNormal,
		dropout: func(rate float64) (layer.Layer, error) {
			return dropout.NewAlpha(rate)
		},
	}, rng)
}

func newBlock(out int, opts Options, f flavor, rng *rand.Rand) (*Block, error) {
	in := opts.InputChannels
	if in == 0 {
		in = out
	}
	if out < in {
		return nil, errors.Errorf("residual: output channels %d fewer than input channels %d", out, in)
	}
	bottleneck := max(out/4, 1)
	b := &Block{In: in, Out: out, Activation: activation.New(f.activation)}

	add := func(l layer.Layer) {
		b.Residual = append(b.Residual, l)
	}
	conv := func(in, out, kernel int) error {
		c, err := conv1d.New(in, out, kernel, layer.Same, f.init, rng)
		if err != nil {
			return err
		}
		c.L2 = opts.L2
		add(c)
		if f.batchNorm {
			add(batchnorm.MustNew(out))
		}
		return nil
	}
	if err := conv(in, bottleneck, 1); err != nil {
		return nil, err
	}
	add(activation.New(f.activation))
	if err := conv(bottleneck, bottleneck, 3); err != nil {
		return nil, err
	}
	add(activation.New(f.activation))
	if err := conv(bottleneck, out, 1); err != nil {
		return nil, err
	}
	d, err := f.dropout(opts.DropoutRate)
	if err != nil {
		return nil, err
	}
	add(d)
	if opts.PoolingSize > 0 {
		b.Pool, err = pool1d.New(pool1d.Max, opts.PoolingSize, layer.Same)
		if err != nil {
			return nil, err
		}
		add(b.Pool)
	}
	if out > in {
		b.Projection, err = conv1d.New(in, out-in, 1, layer.Same, f.init, rng)
		if err != nil {
			return nil, err
		}
		b.Projection.L2 = opts.L2
	}
	return b, nil
}

// MustNewBlock is NewBlock that panics on error.
func MustNewBlock(outputChannels int, opts Options, rng *rand.Rand) *Block {
	o, err := NewBlock(outputChannels, opts, rng)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// Forward implements layer.Layer.
func (b *Block) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	if err := layer.CheckChannels(batch, b.In); err != nil {
		return nil, err
	}
	residual, err := b.Residual.Forward(batch, pass)
	if err != nil {
		return nil, errors.Wrap(err, "residual branch")
	}
	shortcut := batch
	if b.Pool != nil {
		if shortcut, err = b.Pool.Forward(shortcut, pass); err != nil {
			return nil, errors.Wrap(err, "shortcut pooling")
		}
	}
	if b.Projection != nil {
		extra, err := b.Projection.Forward(shortcut, pass)
		if err != nil {
			return nil, errors.Wrap(err, "shortcut projection")
		}
		widened := make([]*mat.Dense, len(shortcut))
		for i := range shortcut {
			var w mat.Dense
			w.Augment(shortcut[i], extra[i])
			widened[i] = &w
		}
		shortcut = widened
	}
	sum := make([]*mat.Dense, len(batch))
	for i := range residual {
		var s mat.Dense
		s.Add(residual[i], shortcut[i])
		sum[i] = &s
	}
	return b.Activation.Forward(sum, pass)
}

// OutputShape implements layer.Layer.
func (b *Block) OutputShape(length, channels int) (int, int) {
	if b.Pool != nil {
		length, _ = b.Pool.OutputShape(length, channels)
	}
	return length, b.Out
}

// Params implements layer.Layer.
func (b *Block) Params() []layer.Param {
	var out []layer.Param
	for _, p := range b.Residual.Params() {
		out = append(out, layer.Param{Name: "residual/" + p.Name, Value: p.Value})
	}
	if b.Projection != nil {
		for _, p := range b.Projection.Params() {
			out = append(out, layer.Param{Name: "projection/" + p.Name, Value: p.Value})
		}
	}
	return out
}

// RegularizationLoss implements layer.Regularizer.
func (b *Block) RegularizationLoss() float64 {
	loss := b.Residual.RegularizationLoss()
	if b.Projection != nil {
		loss += b.Projection.RegularizationLoss()
	}
	return loss
}
