// Package toy provides tiny synthetic collections and databases for exercising
// the pipeline without data on disk.
package toy

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/datasets"
)

// LightCurveLength is the number of samples in every toy light curve.
const LightCurveLength = 100

const pathsPerCollection = 10

func toyPaths(prefix string) []string {
	paths := make([]string, pathsPerCollection)
	for i := range paths {
		paths[i] = prefix + "/" + strconv.Itoa(i)
	}
	return paths
}

func toyTimes() []float64 {
	times := make([]float64, LightCurveLength)
	for i := range times {
		times[i] = float64(i)
	}
	return times
}

// FlatCollection is a collection of constant light curves labeled 0.
type FlatCollection struct{}

func (FlatCollection) Label() float64 { return 0 }

func (FlatCollection) Paths(ctx context.Context) ([]string, error) {
	return toyPaths("toy_flat"), nil
}

func (FlatCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	fluxes := make([]float64, LightCurveLength)
	for i := range fluxes {
		fluxes[i] = 1
	}
	return toyTimes(), fluxes, nil
}

// SineWaveCollection is a collection of sine wave light curves labeled 1.
type SineWaveCollection struct{}

func (SineWaveCollection) Label() float64 { return 1 }

func (SineWaveCollection) Paths(ctx context.Context) ([]string, error) {
	return toyPaths("toy_sine"), nil
}

func (SineWaveCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	times := toyTimes()
	fluxes := make([]float64, len(times))
	for i, t := range times {
		fluxes[i] = math.Sin(t)
	}
	return times, fluxes, nil
}

// FlatAtValueCollection holds flat light curves at values 0, 0.1 ... 0.9,
// each labeled with its own value.
type FlatAtValueCollection struct{}

func (FlatAtValueCollection) Label() float64 { return 0 }

func (FlatAtValueCollection) Paths(ctx context.Context) ([]string, error) {
	paths := make([]string, pathsPerCollection)
	for i := range paths {
		paths[i] = "toy_flat_at_value/" + strconv.FormatFloat(float64(i)/pathsPerCollection, 'f', -1, 64)
	}
	return paths, nil
}

// LoadLabel implements datasets.LabelLoader.
func (FlatAtValueCollection) LoadLabel(path string) (float64, error) {
	i := strings.LastIndexByte(path, '/')
	v, err := strconv.ParseFloat(path[i+1:], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "toy path %q", path)
	}
	return v, nil
}

func (c FlatAtValueCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	v, err := c.LoadLabel(path)
	if err != nil {
		return nil, nil, err
	}
	fluxes := make([]float64, LightCurveLength)
	for i := range fluxes {
		fluxes[i] = v
	}
	return toyTimes(), fluxes, nil
}

func newToyDatabase() *database.StandardAndInjected {
	d := database.New()
	d.BatchSize = 10
	d.NumberOfParallelProcessesPerMap = 1
	d.TimeStepsPerExample = 100
	return d
}

// NewDatabase draws balanced flat and sine wave examples.
func NewDatabase() *database.StandardAndInjected {
	d := newToyDatabase()
	d.TrainingStandardCollections = []datasets.Collection{FlatCollection{}, SineWaveCollection{}}
	d.ValidationStandardCollections = []datasets.Collection{FlatCollection{}, SineWaveCollection{}}
	d.InferenceCollections = []datasets.Collection{FlatCollection{}, SineWaveCollection{}}
	return d
}

// NewDatabaseWithAuxiliary is NewDatabase with two auxiliary values per
// example, [0 0] for flat and [1 1] for sine wave light curves.
func NewDatabaseWithAuxiliary() *database.StandardAndInjected {
	d := newToyDatabase()
	d.NumberOfAuxiliaryValues = 2
	flat := datasets.WithAuxiliary(FlatCollection{}, func(string) ([]float64, error) { return []float64{0, 0}, nil })
	sine := datasets.WithAuxiliary(SineWaveCollection{}, func(string) ([]float64, error) { return []float64{1, 1}, nil })
	d.TrainingStandardCollections = []datasets.Collection{flat, sine}
	d.ValidationStandardCollections = []datasets.Collection{flat, sine}
	d.InferenceCollections = []datasets.Collection{flat, sine}
	return d
}

// NewDatabaseWithFlatValueAsLabel draws unnormalized flat light curves
// labeled with their flux value.
func NewDatabaseWithFlatValueAsLabel() *database.StandardAndInjected {
	d := newToyDatabase()
	d.NormalizeFluxes = func(fluxes []float64) []float64 { return fluxes }
	d.TrainingStandardCollections = []datasets.Collection{FlatAtValueCollection{}}
	d.ValidationStandardCollections = []datasets.Collection{FlatAtValueCollection{}}
	d.InferenceCollections = []datasets.Collection{FlatAtValueCollection{}}
	return d
}
