package batchnorm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

func TestTrainingUsesBatchStatistics(t *testing.T) {
	b := MustNew(1)
	batch := []*mat.Dense{
		mat.NewDense(2, 1, []float64{1, 3}),
		mat.NewDense(2, 1, []float64{5, 7}),
	}
	out, err := b.Forward(batch, layer.Pass{Training: true})
	require.NoError(t, err)
	// mean 4, variance 5
	scale := 1 / math.Sqrt(5+DefaultEpsilon)
	assert.InDelta(t, -3*scale, out[0].At(0, 0), 1e-12)
	assert.InDelta(t, 3*scale, out[1].At(1, 0), 1e-12)

	assert.InDelta(t, 0.04, b.MovingMean.At(0, 0), 1e-12)
	assert.InDelta(t, 0.99+0.05, b.MovingVariance.At(0, 0), 1e-12)
	assert.Equal(t, 1.0, batch[0].At(0, 0))
}

func TestInferenceUsesMovingStatistics(t *testing.T) {
	b := MustNew(2)
	b.MovingMean.SetRow(0, []float64{1, -1})
	b.MovingVariance.SetRow(0, []float64{4 - DefaultEpsilon, 1 - DefaultEpsilon})
	b.Beta.SetRow(0, []float64{0, 10})
	out, err := b.Forward([]*mat.Dense{mat.NewDense(1, 2, []float64{3, 1})}, layer.Pass{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 12}, out[0].RawRowView(0), 1e-9)
	assert.Equal(t, 1.0, b.MovingMean.At(0, 0))
}
