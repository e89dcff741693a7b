// Package conv1d implements a stride 1 one-dimensional convolution layer.
package conv1d

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
	"github.com/neurlang/ramjet/parallel"
)

// Conv1D convolves (time × In) examples into (time' × Out) examples. The
// kernel is stored unrolled, row j*In+c holding the weights of tap j on
// input channel c.
type Conv1D struct {
	In, Out    int
	KernelSize int
	Padding    layer.Padding

	// L2 scales the sum of squared kernel weights added to the loss.
	L2 float64

	Kernel *mat.Dense // (KernelSize*In) × Out
	Bias   *mat.Dense // 1 × Out
}

// New creates a convolution with kernel weights drawn from init and zero bias.
func New(in, out, kernelSize int, padding layer.Padding, init layer.Initializer, rng *rand.Rand) (*Conv1D, error) {
	if in <= 0 || out <= 0 {
		return nil, errors.Errorf("conv1d: channels must be positive, got %d in and %d out", in, out)
	}
	if kernelSize <= 0 {
		return nil, errors.Errorf("conv1d: kernel size must be positive, got %d", kernelSize)
	}
	if init == nil {
		init = layer.GlorotUniform
	}
	o := &Conv1D{
		In:         in,
		Out:        out,
		KernelSize: kernelSize,
		Padding:    padding,
		Kernel:     mat.NewDense(kernelSize*in, out, nil),
		Bias:       mat.NewDense(1, out, nil),
	}
	fanIn, fanOut := kernelSize*in, kernelSize*out
	for r := 0; r < kernelSize*in; r++ {
		for c := 0; c < out; c++ {
			o.Kernel.Set(r, c, init(fanIn, fanOut, rng))
		}
	}
	return o, nil
}

// MustNew is New that panics on error.
func MustNew(in, out, kernelSize int, padding layer.Padding, init layer.Initializer, rng *rand.Rand) *Conv1D {
	o, err := New(in, out, kernelSize, padding, init, rng)
	if err != nil {
		panic(err.Error())
	}
	return o
}

func (c *Conv1D) padding() (left, right int) {
	if c.Padding == layer.Valid {
		return 0, 0
	}
	total := c.KernelSize - 1
	return total / 2, total - total/2
}

// OutputShape implements layer.Layer.
func (c *Conv1D) OutputShape(length, channels int) (int, int) {
	left, right := c.padding()
	return length + left + right - c.KernelSize + 1, c.Out
}

// Forward implements layer.Layer.
func (c *Conv1D) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	if err := layer.CheckChannels(batch, c.In); err != nil {
		return nil, err
	}
	out := make([]*mat.Dense, len(batch))
	err := parallel.ForEachErr(len(batch), 0, func(i int) error {
		y, err := c.forward(batch[i])
		out[i] = y
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conv1D) forward(x *mat.Dense) (*mat.Dense, error) {
	length, _ := x.Dims()
	outLength, _ := c.OutputShape(length, c.In)
	if outLength <= 0 {
		return nil, errors.Wrapf(layer.ErrShape, "conv1d: length %d shorter than kernel %d", length, c.KernelSize)
	}
	if c.KernelSize == 1 {
		return c.addBias(mulNew(x, c.Kernel)), nil
	}
	left, _ := c.padding()
	cols := mat.NewDense(outLength, c.KernelSize*c.In, nil)
	for t := 0; t < outLength; t++ {
		row := cols.RawRowView(t)
		for j := 0; j < c.KernelSize; j++ {
			src := t + j - left
			if src < 0 || src >= length {
				continue
			}
			copy(row[j*c.In:(j+1)*c.In], x.RawRowView(src))
		}
	}
	return c.addBias(mulNew(cols, c.Kernel)), nil
}

func mulNew(a, b mat.Matrix) *mat.Dense {
	var y mat.Dense
	y.Mul(a, b)
	return &y
}

func (c *Conv1D) addBias(y *mat.Dense) *mat.Dense {
	rows, _ := y.Dims()
	bias := c.Bias.RawRowView(0)
	for t := 0; t < rows; t++ {
		row := y.RawRowView(t)
		for k, b := range bias {
			row[k] += b
		}
	}
	return y
}

// Params implements layer.Layer.
func (c *Conv1D) Params() []layer.Param {
	return []layer.Param{{Name: "kernel", Value: c.Kernel}, {Name: "bias", Value: c.Bias}}
}

// RegularizationLoss implements layer.Regularizer.
func (c *Conv1D) RegularizationLoss() float64 {
	if c.L2 == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.Kernel.RawMatrix().Data {
		sum += v * v
	}
	return c.L2 * sum
}
