// Package lightcurve holds the light curve type and the file loaders for the
// survey formats the collections read.
package lightcurve

import "math"

// LightCurve is a brightness time series of a single celestial object.
type LightCurve struct {
	Times  []float64
	Fluxes []float64
}

// Len returns the number of samples.
func (l *LightCurve) Len() int {
	return len(l.Times)
}

// RemoveNaNs drops every sample where either the time or the flux is NaN.
func (l *LightCurve) RemoveNaNs() {
	l.Times, l.Fluxes = RemoveNaNs(l.Times, l.Fluxes)
}

// RemoveNaNs returns copies of times and values without the positions where
// either is NaN. The slices are truncated to the shorter of the two.
func RemoveNaNs(times, values []float64) ([]float64, []float64) {
	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	outTimes := make([]float64, 0, n)
	outValues := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(times[i]) || math.IsNaN(values[i]) {
			continue
		}
		outTimes = append(outTimes, times[i])
		outValues = append(outValues, values[i])
	}
	return outTimes, outValues
}
