package residual

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
	"github.com/neurlang/ramjet/layer/batchnorm"
)

func rng() *rand.Rand { return rand.New(rand.NewPCG(9, 9)) }

func randomBatch(n, length, channels int) []*mat.Dense {
	r := rng()
	batch := make([]*mat.Dense, n)
	for i := range batch {
		data := make([]float64, length*channels)
		for j := range data {
			data[j] = r.NormFloat64()
		}
		batch[i] = mat.NewDense(length, channels, data)
	}
	return batch
}

func TestWideningPooledBlock(t *testing.T) {
	b := MustNewBlock(12, Options{InputChannels: 8, PoolingSize: 2}, rng())
	require.NotNil(t, b.Projection)
	length, channels := b.OutputShape(9, 8)
	assert.Equal(t, 5, length)
	assert.Equal(t, 12, channels)

	out, err := b.Forward(randomBatch(3, 9, 8), layer.Pass{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	r, c := out[0].Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 12, c)
}

func TestPlainBlockHasNoProjection(t *testing.T) {
	b := MustNewBlock(16, Options{}, rng())
	assert.Nil(t, b.Projection)
	assert.Nil(t, b.Pool)
	out, err := b.Forward(randomBatch(2, 7, 16), layer.Pass{Training: true, Rand: rng()})
	require.NoError(t, err)
	r, c := out[1].Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 16, c)
}

func TestBottleneckWidth(t *testing.T) {
	b := MustNewBlock(12, Options{InputChannels: 1, DisableBatchNormalization: true}, rng())
	for _, l := range b.Residual {
		_, isBatchNorm := l.(*batchnorm.BatchNorm)
		assert.False(t, isBatchNorm)
	}
	_, channels := b.Residual[0].OutputShape(10, 1)
	assert.Equal(t, 3, channels)
	assert.Len(t, b.Params(), 8)
}

func TestNarrowingFails(t *testing.T) {
	_, err := NewBlock(4, Options{InputChannels: 8}, rng())
	assert.Error(t, err)
}

func TestWrongInputChannelsFail(t *testing.T) {
	b := MustNewBlock(8, Options{}, rng())
	_, err := b.Forward(randomBatch(1, 4, 3), layer.Pass{})
	assert.True(t, errors.Is(err, layer.ErrShape))
}

func TestSeluBlock(t *testing.T) {
	b, err := NewSeluBlock(8, Options{InputChannels: 1, DropoutRate: 0.5, L2: 0.1}, rng())
	require.NoError(t, err)
	for _, l := range b.Residual {
		_, isBatchNorm := l.(*batchnorm.BatchNorm)
		assert.False(t, isBatchNorm)
	}
	assert.Greater(t, b.RegularizationLoss(), 0.0)
	out, err := b.Forward(randomBatch(2, 6, 1), layer.Pass{Training: true, Rand: rng()})
	require.NoError(t, err)
	_, c := out[0].Dims()
	assert.Equal(t, 8, c)
}
