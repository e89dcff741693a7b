// Package dropout implements the dropout layers used during training. Both
// are the identity outside training.
package dropout

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/layer"
)

func checkRate(rate float64) error {
	if rate < 0 || rate >= 1 {
		return errors.Errorf("dropout: rate must be in [0, 1), got %g", rate)
	}
	return nil
}

// Spatial drops whole channels of an example and scales the kept ones by 1/(1-Rate).
type Spatial struct {
	Rate float64
}

// NewSpatial creates a spatial dropout layer.
func NewSpatial(rate float64) (*Spatial, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	return &Spatial{Rate: rate}, nil
}

// Forward implements layer.Layer.
func (s *Spatial) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	if !pass.Training || s.Rate == 0 {
		return batch, nil
	}
	out := make([]*mat.Dense, len(batch))
	for i, x := range batch {
		rows, channels := x.Dims()
		keep := make([]float64, channels)
		for c := range keep {
			if pass.Float64() >= s.Rate {
				keep[c] = 1 / (1 - s.Rate)
			}
		}
		y := mat.DenseCopyOf(x)
		for t := 0; t < rows; t++ {
			row := y.RawRowView(t)
			for c := range row {
				row[c] *= keep[c]
			}
		}
		out[i] = y
	}
	return out, nil
}

// OutputShape implements layer.Layer.
func (s *Spatial) OutputShape(length, channels int) (int, int) { return length, channels }

// Params implements layer.Layer.
func (s *Spatial) Params() []layer.Param { return nil }

// selu negative saturation, -scale*alpha
const alphaPrime = -1.7580993408473766

// Alpha drops single values to the SELU saturation value and then applies an
// affine correction that keeps zero mean and unit variance.
type Alpha struct {
	Rate float64
}

// NewAlpha creates an alpha dropout layer.
func NewAlpha(rate float64) (*Alpha, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	return &Alpha{Rate: rate}, nil
}

// Forward implements layer.Layer.
func (a *Alpha) Forward(batch []*mat.Dense, pass layer.Pass) ([]*mat.Dense, error) {
	if !pass.Training || a.Rate == 0 {
		return batch, nil
	}
	keepProbability := 1 - a.Rate
	scale := 1 / math.Sqrt(keepProbability*(1+a.Rate*alphaPrime*alphaPrime))
	shift := -scale * alphaPrime * a.Rate
	out := make([]*mat.Dense, len(batch))
	for i, x := range batch {
		y := mat.DenseCopyOf(x)
		rows, _ := y.Dims()
		for t := 0; t < rows; t++ {
			row := y.RawRowView(t)
			for c := range row {
				if pass.Float64() < a.Rate {
					row[c] = alphaPrime
				}
				row[c] = scale*row[c] + shift
			}
		}
		out[i] = y
	}
	return out, nil
}

// OutputShape implements layer.Layer.
func (a *Alpha) OutputShape(length, channels int) (int, int) { return length, channels }

// Params implements layer.Layer.
func (a *Alpha) Params() []layer.Param { return nil }

// MustSpatial is NewSpatial that panics on error.
func MustSpatial(rate float64) *Spatial {
	o, err := NewSpatial(rate)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// MustAlpha is NewAlpha that panics on error.
func MustAlpha(rate float64) *Alpha {
	o, err := NewAlpha(rate)
	if err != nil {
		panic(err.Error())
	}
	return o
}
