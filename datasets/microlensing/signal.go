// Package microlensing generates point source point lens (PSPL) magnification signals.
package microlensing

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// SignalLength is the number of samples of a generated signal.
	SignalLength = 1000

	// log10 of the Einstein crossing time in days, as observed by MOA
	log10EinsteinTimeMean   = 1.15
	log10EinsteinTimeStdDev = 0.45
	minimumEinsteinTime     = 1
	maximumEinsteinTime     = 300

	// the signal spans this many Einstein times on each side of the peak
	einsteinTimesPerSide = 5
)

// MagnificationSignal is a sampled PSPL magnification curve.
type MagnificationSignal struct {
	Timeseries    []float64
	Magnification []float64

	U0 float64 // minimum impact parameter in Einstein radii
	TE float64 // Einstein crossing time in days
	T0 float64 // time of the peak
}

// New samples a PSPL signal with n points spanning five Einstein times on each side of t0.
func New(u0, tE, t0 float64, n int) (*MagnificationSignal, error) {
	if u0 < 0 {
		return nil, errors.Errorf("negative impact parameter %g", u0)
	}
	if tE <= 0 {
		return nil, errors.Errorf("non-positive Einstein time %g", tE)
	}
	if n < 2 {
		return nil, errors.Errorf("signal needs at least 2 samples, got %d", n)
	}
	s := &MagnificationSignal{U0: u0, TE: tE, T0: t0}
	s.Timeseries = make([]float64, n)
	floats.Span(s.Timeseries, t0-einsteinTimesPerSide*tE, t0+einsteinTimesPerSide*tE)
	s.Magnification = make([]float64, n)
	for i, t := range s.Timeseries {
		s.Magnification[i] = Magnification(u0, tE, t0, t)
	}
	return s, nil
}

// Magnification returns the PSPL magnification at time t.
func Magnification(u0, tE, t0, t float64) float64 {
	tau := (t - t0) / tE
	u := math.Sqrt(u0*u0 + tau*tau)
	if u == 0 {
		return math.Inf(1)
	}
	return (u*u + 2) / (u * math.Sqrt(u*u+4))
}

// GenerateRandomlyBasedOnMOAObservations draws the PSPL parameters from
// distributions matching the MOA microlensing detections.
func GenerateRandomlyBasedOnMOAObservations(rng *rand.Rand) *MagnificationSignal {
	// u0 == 0 gives an infinite peak
	u0 := rng.Float64()
	for u0 == 0 {
		u0 = rng.Float64()
	}
	tE := math.Pow(10, rng.NormFloat64()*log10EinsteinTimeStdDev+log10EinsteinTimeMean)
	tE = math.Min(math.Max(tE, minimumEinsteinTime), maximumEinsteinTime)
	s, err := New(u0, tE, 0, SignalLength)
	if err != nil {
		panic(err.Error())
	}
	return s
}
