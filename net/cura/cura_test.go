package cura

import (
	"bytes"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

func rng(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) }

func TestVariantsBuild(t *testing.T) {
	for _, name := range Names() {
		n, err := ByName(name, 1, 1, rng(1))
		require.NoError(t, err, name)
		assert.Len(t, n.Blocks, 1+12*3, name)
		assert.True(t, n.ValidInputLength(20000), name)
	}
	_, err := ByName("cura_sideways", 1, 1, nil)
	assert.Error(t, err)
	assert.Len(t, Names(), 9)
}

func TestWidths(t *testing.T) {
	n := NewCuraWider(1, 1, rng(1))
	_, channels := n.Blocks[len(n.Blocks)-1].OutputShape(10, 0)
	assert.Equal(t, 512, channels)
	assert.Equal(t, 32, n.Blocks[0].Out)

	n = NewCuraFinalAveragePoolNarrowerer(2, 3, rng(1))
	assert.Equal(t, 3, n.Blocks[0].In)
	assert.Equal(t, 32, n.Blocks[len(n.Blocks)-1].Out)
	assert.Equal(t, 2, n.Prediction.Out)
}

func TestInputLengths(t *testing.T) {
	n := NewCuraNarrower(1, 1, rng(1))
	// twelve halvings, then a valid pool of five
	assert.False(t, n.ValidInputLength(4*4096))
	assert.True(t, n.ValidInputLength(4*4096+1))
	assert.True(t, n.ValidInputLength(9*4096))
	assert.False(t, n.ValidInputLength(9*4096+1))

	_, err := n.Forward([]*mat.Dense{mat.NewDense(1000, 1, nil)}, false)
	assert.True(t, errors.Is(err, ErrInputTooShort))
	_, err = n.Forward([]*mat.Dense{mat.NewDense(50000, 1, nil)}, false)
	assert.True(t, errors.Is(err, layer.ErrShape))
}

func TestForwardGivesConfidences(t *testing.T) {
	n := NewCuraFinalAveragePoolNarrowerer(2, 1, rng(2))
	r := rng(3)
	data := make([]float64, 20000)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	out, err := n.Forward([]*mat.Dense{mat.NewDense(20000, 1, data)}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], 2)
	for _, c := range out[0] {
		assert.Greater(t, c, 0.0)
		assert.Less(t, c, 1.0)
	}
}

func TestRegularizationOnlyWithL2(t *testing.T) {
	assert.Zero(t, NewCuraFinalAveragePool(1, 1, rng(1)).RegularizationLoss())
	assert.Greater(t, NewCuraFinalAveragePoolWithL2(1, 1, rng(1)).RegularizationLoss(), 0.0)
}

func TestCompressedWeightsRoundTrip(t *testing.T) {
	a := NewCuraFinalAveragePoolNarrowerer(1, 1, rng(4))
	b := NewCuraFinalAveragePoolNarrowerer(1, 1, rng(5))
	require.Equal(t, a.Len(), b.Len())
	require.NotEqual(t, a.Prediction.Kernel.RawMatrix().Data, b.Prediction.Kernel.RawMatrix().Data)

	path := filepath.Join(t.TempDir(), "weights.json.lzw")
	require.NoError(t, a.WriteCompressedWeightsToFile(path))
	require.NoError(t, b.ReadCompressedWeightsFromFile(path))

	pa, pb := a.Params(), b.Params()
	for i := range pa {
		assert.Equal(t, pa[i].Name, pb[i].Name)
		assert.True(t, mat.Equal(pa[i].Value, pb[i].Value), pa[i].Name)
	}
}

func TestReadWeightsOfAnotherShapeFails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCuraFinalAveragePoolNarrowerer(1, 1, rng(1)).WriteCompressedWeights(&buf))
	err := NewCuraNarrower(1, 1, rng(1)).ReadCompressedWeights(&buf)
	assert.Error(t, err)
}
