package database

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// ErrSignalLongerThanLightCurve is returned by FullSignal injection when the
// signal spans more time than the light curve.
var ErrSignalLongerThanLightCurve = errors.New("signal is longer than the light curve")

// OutOfBoundsInjectionHandling selects how a signal is placed relative to the
// light curve it is injected into.
type OutOfBoundsInjectionHandling int

const (
	// FullSignal keeps the whole signal inside the light curve.
	FullSignal OutOfBoundsInjectionHandling = iota
	// RandomInjectLocation lets the signal hang off either end.
	RandomInjectLocation
	// RepeatSignal tiles the signal over the whole light curve.
	RepeatSignal
)

func (h OutOfBoundsInjectionHandling) String() string {
	switch h {
	case FullSignal:
		return "full_signal"
	case RandomInjectLocation:
		return "random_inject_location"
	case RepeatSignal:
		return "repeat_signal"
	}
	return "unknown"
}

// ParseOutOfBoundsInjectionHandling is the inverse of String.
func ParseOutOfBoundsInjectionHandling(s string) (OutOfBoundsInjectionHandling, error) {
	for _, h := range []OutOfBoundsInjectionHandling{FullSignal, RandomInjectLocation, RepeatSignal} {
		if h.String() == s {
			return h, nil
		}
	}
	return 0, errors.Errorf("unknown out of bounds injection handling %q", s)
}

// InjectSignalIntoLightCurve adds a magnification signal to fluxes. The
// magnifications are scaled by the median flux so a magnification of 1 adds
// nothing. The signal is linearly interpolated at the light curve times and
// contributes 0 outside its own time range.
func InjectSignalIntoLightCurve(fluxes, times, magnifications, signalTimes []float64, handling OutOfBoundsInjectionHandling, rng *rand.Rand) ([]float64, error) {
	if len(fluxes) != len(times) {
		return nil, errors.Errorf("%d fluxes for %d times", len(fluxes), len(times))
	}
	if len(fluxes) == 0 {
		return nil, ErrEmptyLightCurve
	}
	baseline := Median(fluxes)
	signalFluxes := make([]float64, len(magnifications))
	for i, m := range magnifications {
		signalFluxes[i] = m*baseline - baseline
	}
	signal, err := fitSignal(signalTimes, signalFluxes)
	if err != nil {
		return nil, err
	}
	signalSpan := signal.span

	minTime := floats.Min(times)
	lightCurveSpan := floats.Max(times) - minTime
	difference := lightCurveSpan - signalSpan

	out := append([]float64(nil), fluxes...)
	switch handling {
	case FullSignal:
		if difference < 0 {
			return nil, errors.Wrapf(ErrSignalLongerThanLightCurve, "signal %g, light curve %g", signalSpan, lightCurveSpan)
		}
		offset := rng.Float64()*difference + minTime
		for i, t := range times {
			out[i] += signal.at(t - offset)
		}
	case RandomInjectLocation:
		offset := rng.Float64()*(lightCurveSpan+signalSpan) - signalSpan + minTime
		for i, t := range times {
			out[i] += signal.at(t - offset)
		}
	case RepeatSignal:
		period := signal.period()
		offset := minTime - rng.Float64()*period
		for i, t := range times {
			out[i] += signal.at(math.Mod(t-offset, period))
		}
	default:
		return nil, errors.Errorf("unknown out of bounds injection handling %d", handling)
	}
	return out, nil
}

type injectedSignal struct {
	fit      interp.PiecewiseLinear
	span     float64
	cadence  float64
	constant float64
	single   bool
}

// fitSignal fits the signal over times relative to the first sample. Samples
// are sorted and repeated times keep their first value.
func fitSignal(times, values []float64) (*injectedSignal, error) {
	if len(times) != len(values) {
		return nil, errors.Errorf("%d signal values for %d times", len(values), len(times))
	}
	if len(times) == 0 {
		return nil, errors.New("empty signal")
	}
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })
	start := times[order[0]]
	xs := make([]float64, 0, len(times))
	ys := make([]float64, 0, len(times))
	for _, i := range order {
		x := times[i] - start
		if len(xs) > 0 && x == xs[len(xs)-1] {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, values[i])
	}
	s := &injectedSignal{span: xs[len(xs)-1]}
	if len(xs) == 1 {
		s.single, s.constant = true, ys[0]
		return s, nil
	}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "fit signal")
	}
	steps := make([]float64, len(xs)-1)
	for i := range steps {
		steps[i] = xs[i+1] - xs[i]
	}
	s.cadence = Median(steps)
	return s, nil
}

func (s *injectedSignal) at(x float64) float64 {
	if x < 0 || x > s.span {
		return 0
	}
	if s.single {
		return s.constant
	}
	return s.fit.Predict(x)
}

// period is the tiling period, one cadence longer than the span so the last
// and first samples of consecutive copies don't coincide.
func (s *injectedSignal) period() float64 {
	if p := s.span + s.cadence; p > 0 {
		return p
	}
	return 1
}
