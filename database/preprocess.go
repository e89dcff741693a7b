package database

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/lightcurve"
)

// ErrEmptyLightCurve is returned when a light curve has no finite samples.
var ErrEmptyLightCurve = errors.New("light curve has no finite samples")

// Example is one preprocessed, labeled network input.
type Example struct {
	Path      string
	Fluxes    *mat.Dense // time steps × 1
	Label     []float64
	Auxiliary []float64
}

// Percentile returns the p-th percentile (0..100) of values, linearly
// interpolated between the closest ranks like numpy's default. values is not
// modified. Returns NaN for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// Median returns the median of values, averaging the middle pair for even counts.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// NormalizeOnPercentiles maps the 10th percentile to -0.5 and the 90th to
// 0.5. A flat input yields zeros.
func NormalizeOnPercentiles(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	p10 := percentileSorted(sorted, 10)
	p90 := percentileSorted(sorted, 90)
	difference := p90 - p10
	if difference == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v-p10)/difference - 0.5
	}
	return out
}

// MakeUniformLength returns values at exactly length samples. When
// randomize is set the values are first rolled by a random offset drawn from
// rng. Longer inputs are truncated, shorter ones repeated from the start.
func MakeUniformLength(values []float64, length int, randomize bool, rng *rand.Rand) []float64 {
	out := make([]float64, length)
	n := len(values)
	if n == 0 {
		return out
	}
	shift := 0
	if randomize && rng != nil {
		shift = rng.IntN(n)
	}
	for i := range out {
		// rolled[j] == values[(j - shift) mod n]
		j := i % n
		out[i] = values[(j-shift+n)%n]
	}
	return out
}

// FluxPreprocessing normalizes fluxes and brings them to TimeStepsPerExample.
// Evaluation mode keeps the window fixed; otherwise it is rolled using rng.
func (d *StandardAndInjected) FluxPreprocessing(fluxes []float64, evaluationMode bool, rng *rand.Rand) []float64 {
	normalize := d.NormalizeFluxes
	if normalize == nil {
		normalize = NormalizeOnPercentiles
	}
	return MakeUniformLength(normalize(fluxes), d.timeSteps(), !evaluationMode, rng)
}

// PreprocessStandardLightCurve loads the light curve at path from c and turns
// it into an example labeled with the collection label.
func (d *StandardAndInjected) PreprocessStandardLightCurve(c datasets.Collection, path string, evaluationMode bool, rng *rand.Rand) (Example, error) {
	times, fluxes, err := datasets.LoadTimesAndFluxes(c, path)
	if err != nil {
		return Example{}, errors.Wrapf(err, "load %q", path)
	}
	_, fluxes = lightcurve.RemoveNaNs(times, fluxes)
	if len(fluxes) == 0 {
		return Example{}, errors.Wrapf(ErrEmptyLightCurve, "%q", path)
	}
	label, err := datasets.LoadLabel(c, path)
	if err != nil {
		return Example{}, errors.Wrapf(err, "label of %q", path)
	}
	return d.example(c, path, d.FluxPreprocessing(fluxes, evaluationMode, rng), label)
}

// PreprocessInjectedLightCurve injects the signal at injectablePath into the
// light curve at injecteePath. The example takes the injectable label.
func (d *StandardAndInjected) PreprocessInjectedLightCurve(injectee, injectable datasets.Collection, injecteePath, injectablePath string, rng *rand.Rand) (Example, error) {
	times, fluxes, err := datasets.LoadTimesAndFluxes(injectee, injecteePath)
	if err != nil {
		return Example{}, errors.Wrapf(err, "load injectee %q", injecteePath)
	}
	times, fluxes = lightcurve.RemoveNaNs(times, fluxes)
	if len(fluxes) == 0 {
		return Example{}, errors.Wrapf(ErrEmptyLightCurve, "%q", injecteePath)
	}
	signalTimes, magnifications, err := datasets.LoadTimesAndMagnifications(injectable, injectablePath)
	if err != nil {
		return Example{}, errors.Wrapf(err, "load injectable %q", injectablePath)
	}
	signalTimes, magnifications = lightcurve.RemoveNaNs(signalTimes, magnifications)
	injected, err := InjectSignalIntoLightCurve(fluxes, times, magnifications, signalTimes, d.OutOfBoundsInjectionHandling, rng)
	if err != nil {
		return Example{}, errors.Wrapf(err, "inject %q into %q", injectablePath, injecteePath)
	}
	label, err := datasets.LoadLabel(injectable, injectablePath)
	if err != nil {
		return Example{}, errors.Wrapf(err, "label of %q", injectablePath)
	}
	return d.example(injectee, injecteePath, d.FluxPreprocessing(injected, false, rng), label)
}

func (d *StandardAndInjected) example(c datasets.Collection, path string, fluxes []float64, label float64) (Example, error) {
	e := Example{
		Path:   path,
		Fluxes: mat.NewDense(len(fluxes), 1, fluxes),
		Label:  []float64{label},
	}
	if d.NumberOfAuxiliaryValues > 0 {
		aux, err := datasets.LoadAuxiliaryInformation(c, path)
		if err != nil {
			return Example{}, errors.Wrapf(err, "auxiliary information of %q", path)
		}
		if len(aux) != d.NumberOfAuxiliaryValues {
			return Example{}, errors.Errorf("%q has %d auxiliary values, expected %d", path, len(aux), d.NumberOfAuxiliaryValues)
		}
		e.Auxiliary = aux
	}
	return e, nil
}
