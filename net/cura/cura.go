// Package cura implements the Cura family of deep one-dimensional residual
// convolutional networks for light curve classification.
package cura

import (
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
	"github.com/neurlang/ramjet/layer/activation"
	"github.com/neurlang/ramjet/layer/conv1d"
	"github.com/neurlang/ramjet/layer/pool1d"
	"github.com/neurlang/ramjet/layer/residual"
)

// ErrInputTooShort is returned when an input is pooled away before the
// prediction layer.
var ErrInputTooShort = errors.New("input too short for the network")

const (
	firstBlockChannels = 8
	finalPoolingSize   = 5
	plainBlocksPerStep = 2
)

var (
	curaWidths       = []int{12, 16, 20, 24, 28, 32, 36, 40, 44, 48, 64, 128}
	narrowerWidths   = []int{12, 16, 20, 20, 24, 24, 28, 28, 32, 32, 36, 36}
	avgNarrowWidths  = []int{12, 16, 20, 24, 28, 32, 32, 36, 36, 40, 40, 44}
	narrowererWidths = []int{12, 12, 16, 16, 20, 20, 24, 24, 28, 28, 32, 32}
)

// variant describes one member of the family.
type variant struct {
	widths      []int
	widen       int
	dropoutRate float64
	l2          float64
	selu        bool
	finalPool   pool1d.Kind
}

var variants = map[string]variant{
	"cura":                               {widths: curaWidths},
	"cura_wider":                         {widths: curaWidths, widen: 4},
	"cura_narrower":                      {widths: narrowerWidths},
	"cura_with_dropout":                  {widths: curaWidths, dropoutRate: 0.5},
	"cura_final_average_pool":            {widths: curaWidths, dropoutRate: 0.5, finalPool: pool1d.Average},
	"cursa":                              {widths: curaWidths, dropoutRate: 0.5, selu: true, finalPool: pool1d.Average},
	"cura_final_average_pool_narrower":   {widths: avgNarrowWidths, dropoutRate: 0.5, finalPool: pool1d.Average},
	"cura_final_average_pool_with_l2":    {widths: curaWidths, dropoutRate: 0.5, l2: 0.001, finalPool: pool1d.Average},
	"cura_final_average_pool_narrowerer": {widths: narrowererWidths, dropoutRate: 0.5, finalPool: pool1d.Average},
}

// Names lists the variant names accepted by ByName.
func Names() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Network is a stack of residual blocks followed by a final pooling and a
// pointwise sigmoid prediction per label.
type Network struct {
	Name          string
	Labels        int
	InputChannels int

	Blocks       []*residual.Block
	FinalPooling *pool1d.Pool1D
	Prediction   *conv1d.Conv1D
	Sigmoid      *activation.Activation
}

// ByName creates the variant called name. A nil rng draws a random seed.
func ByName(name string, numberOfLabelTypes, numberOfInputChannels int, rng *rand.Rand) (*Network, error) {
	v, ok := variants[name]
	if !ok {
		return nil, errors.Errorf("unknown network %q, expected one of %v", name, Names())
	}
	return v.build(name, numberOfLabelTypes, numberOfInputChannels, rng)
}

func mustByName(name string, labels, channels int, rng *rand.Rand) *Network {
	n, err := ByName(name, labels, channels, rng)
	if err != nil {
		panic(err.Error())
	}
	return n
}

// NewCura creates the base network.
func NewCura(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura", labels, channels, rng)
}

// NewCuraWider is NewCura with four times the channels.
func NewCuraWider(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_wider", labels, channels, rng)
}

// NewCuraNarrower grows the channels more slowly.
func NewCuraNarrower(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_narrower", labels, channels, rng)
}

// NewCuraWithDropout is NewCura with spatial dropout of 0.5 in every block.
func NewCuraWithDropout(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_with_dropout", labels, channels, rng)
}

// NewCuraFinalAveragePool is NewCuraWithDropout with a final average pooling.
func NewCuraFinalAveragePool(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_final_average_pool", labels, channels, rng)
}

// NewCursa is the self normalizing variant built from SELU blocks.
func NewCursa(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cursa", labels, channels, rng)
}

func NewCuraFinalAveragePoolNarrower(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_final_average_pool_narrower", labels, channels, rng)
}

// NewCuraFinalAveragePoolWithL2 adds an L2 penalty of 0.001 on every kernel.
func NewCuraFinalAveragePoolWithL2(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_final_average_pool_with_l2", labels, channels, rng)
}

func NewCuraFinalAveragePoolNarrowerer(labels, channels int, rng *rand.Rand) *Network {
	return mustByName("cura_final_average_pool_narrowerer", labels, channels, rng)
}

func (v variant) build(name string, labels, channels int, rng *rand.Rand) (*Network, error) {
	if labels <= 0 || channels <= 0 {
		return nil, errors.Errorf("%s: labels and input channels must be positive, got %d and %d", name, labels, channels)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	widen := v.widen
	if widen == 0 {
		widen = 1
	}
	newBlock := residual.NewBlock
	init := layer.GlorotUniform
	if v.selu {
		newBlock = residual.NewSeluBlock
		init = layer.LeCunNormal
	}
	n := &Network{Name: name, Labels: labels, InputChannels: channels, Sigmoid: activation.New(activation.Sigmoid)}
	add := func(out int, opts residual.Options) error {
		opts.DropoutRate = v.dropoutRate
		opts.L2 = v.l2
		b, err := newBlock(out, opts, rng)
		if err != nil {
			return errors.Wrapf(err, "%s block %d", name, len(n.Blocks))
		}
		n.Blocks = append(n.Blocks, b)
		return nil
	}

	in := firstBlockChannels * widen
	if err := add(in, residual.Options{InputChannels: channels, DisableBatchNormalization: true}); err != nil {
		return nil, err
	}
	for _, width := range v.widths {
		out := width * widen
		if err := add(out, residual.Options{InputChannels: in, PoolingSize: 2}); err != nil {
			return nil, err
		}
		for range plainBlocksPerStep {
			if err := add(out, residual.Options{}); err != nil {
				return nil, err
			}
		}
		in = out
	}
	var err error
	if n.FinalPooling, err = pool1d.New(v.finalPool, finalPoolingSize, layer.Valid); err != nil {
		return nil, err
	}
	if n.Prediction, err = conv1d.New(in, labels, 1, layer.Valid, init, rng); err != nil {
		return nil, err
	}
	return n, nil
}

// Layers returns the network as one sequence.
func (n *Network) Layers() layer.Sequential {
	s := make(layer.Sequential, 0, len(n.Blocks)+3)
	for _, b := range n.Blocks {
		s = append(s, b)
	}
	return append(s, n.FinalPooling, n.Prediction, n.Sigmoid)
}

// OutputShape gives the shape of an example after the prediction layer.
func (n *Network) OutputShape(length int) (int, int) {
	return n.Layers().OutputShape(length, n.InputChannels)
}

// ValidInputLength reports whether examples of length time steps produce
// exactly one prediction.
func (n *Network) ValidInputLength(length int) bool {
	l, _ := n.OutputShape(length)
	return l == 1
}

// Forward predicts label confidences for every example. Training enables
// dropout and updates the batch normalization statistics.
func (n *Network) Forward(batch []*mat.Dense, training bool) ([][]float64, error) {
	return n.ForwardPass(batch, layer.Pass{Training: training})
}

// ForwardPass is Forward with an explicit pass state.
func (n *Network) ForwardPass(batch []*mat.Dense, pass layer.Pass) ([][]float64, error) {
	for i, x := range batch {
		length, _ := x.Dims()
		switch l, _ := n.OutputShape(length); {
		case l <= 0:
			return nil, errors.Wrapf(ErrInputTooShort, "example %d has %d time steps", i, length)
		case l > 1:
			return nil, errors.Wrapf(layer.ErrShape, "example %d of %d time steps leaves %d predictions", i, length, l)
		}
	}
	out, err := n.Layers().Forward(batch, pass)
	if err != nil {
		return nil, errors.Wrap(err, n.Name)
	}
	confidences := make([][]float64, len(out))
	for i, y := range out {
		confidences[i] = mat.Row(nil, 0, y)
	}
	return confidences, nil
}

// Params lists every weight of the network.
func (n *Network) Params() []layer.Param {
	return n.Layers().Params()
}

// Len is the number of scalar weights.
func (n *Network) Len() (o int) {
	for _, p := range n.Params() {
		r, c := p.Value.Dims()
		o += r * c
	}
	return
}

// RegularizationLoss is the weight penalty added to the training loss.
func (n *Network) RegularizationLoss() float64 {
	return n.Layers().RegularizationLoss()
}
