package database

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileInterpolatesLinearly(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Percentile(values, 50), 1e-12)
	assert.InDelta(t, 1.3, Percentile(values, 10), 1e-12)
	assert.InDelta(t, 4, Percentile(values, 100), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}

func TestNormalizeOnPercentiles(t *testing.T) {
	values := make([]float64, 11)
	for i := range values {
		values[i] = float64(i)
	}
	normalized := NormalizeOnPercentiles(values)
	assert.InDelta(t, -0.5, normalized[1], 1e-12)
	assert.InDelta(t, 0, normalized[5], 1e-12)
	assert.InDelta(t, 0.5, normalized[9], 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, NormalizeOnPercentiles([]float64{3, 3, 3}))
}

func TestMakeUniformLengthTruncatesAndRepeats(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, MakeUniformLength([]float64{1, 2, 3, 4, 5}, 3, false, nil))
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3, 1}, MakeUniformLength([]float64{1, 2, 3}, 7, false, nil))
	assert.Equal(t, []float64{0, 0}, MakeUniformLength(nil, 2, true, nil))
}

func TestMakeUniformLengthRollsWhenRandomized(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		rolled := MakeUniformLength(values, len(values), true, rng)
		shift := int(rolled[0])
		for i, v := range rolled {
			require.Equal(t, float64((i+shift)%len(values)), v)
		}
	}
}

func TestFluxPreprocessingInEvaluationModeIsDeterministic(t *testing.T) {
	d := New()
	d.TimeStepsPerExample = 5
	fluxes := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	first := d.FluxPreprocessing(fluxes, true, rand.New(rand.NewPCG(1, 1)))
	second := d.FluxPreprocessing(fluxes, true, rand.New(rand.NewPCG(2, 2)))
	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
	assert.InDelta(t, -0.5, first[1], 1e-12)
}

func TestShuffleBufferEmitsEveryItem(t *testing.T) {
	b := newShuffleBuffer[int](3, rand.New(rand.NewPCG(3, 3)))
	seen := map[int]int{}
	for i := range 30 {
		out, ok := b.push(i)
		if i < 3 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		seen[out]++
	}
	for _, item := range b.items {
		seen[item]++
	}
	assert.Len(t, seen, 30)
}
