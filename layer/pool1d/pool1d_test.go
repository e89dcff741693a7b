package pool1d

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

func TestMaxPoolSameCoversTail(t *testing.T) {
	p := MustNew(Max, 2, layer.Same)
	x := mat.NewDense(5, 1, []float64{1, 3, 2, 0, 7})
	out, err := p.Forward([]*mat.Dense{x}, layer.Pass{})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 7}, out[0].RawMatrix().Data)
}

func TestAveragePoolValidDropsTail(t *testing.T) {
	p := MustNew(Average, 2, layer.Valid)
	x := mat.NewDense(5, 2, []float64{1, 10, 3, 20, 2, 30, 4, 40, 100, 100})
	out, err := p.Forward([]*mat.Dense{x}, layer.Pass{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 15, 3, 35}, out[0].RawMatrix().Data)
}

func TestPoolShorterThanSizeFails(t *testing.T) {
	p := MustNew(Max, 5, layer.Valid)
	length, _ := p.OutputShape(4, 1)
	assert.Zero(t, length)
	_, err := p.Forward([]*mat.Dense{mat.NewDense(4, 1, nil)}, layer.Pass{})
	assert.True(t, errors.Is(err, layer.ErrShape))
}
