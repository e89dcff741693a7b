package microlensing

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnificationIsOneFarFromPeak(t *testing.T) {
	assert.InDelta(t, 1, Magnification(0.5, 10, 0, 1e6), 1e-9)
}

func TestMagnificationAtPeak(t *testing.T) {
	u := 0.5
	expected := (u*u + 2) / (u * math.Sqrt(u*u+4))
	assert.InDelta(t, expected, Magnification(u, 20, 3, 3), 1e-12)
}

func TestNewSpansFiveEinsteinTimes(t *testing.T) {
	s, err := New(0.1, 10, 2, 101)
	require.NoError(t, err)
	require.Len(t, s.Timeseries, 101)
	require.Len(t, s.Magnification, 101)
	assert.InDelta(t, -48, s.Timeseries[0], 1e-9)
	assert.InDelta(t, 52, s.Timeseries[100], 1e-9)

	// symmetric around the peak, largest at the middle
	assert.InDelta(t, s.Magnification[0], s.Magnification[100], 1e-9)
	for i, m := range s.Magnification {
		assert.LessOrEqual(t, m, s.Magnification[50], "sample %d", i)
		assert.GreaterOrEqual(t, m, 1.0)
	}
}

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(-1, 10, 0, 10)
	assert.Error(t, err)
	_, err = New(0.1, 0, 0, 10)
	assert.Error(t, err)
	_, err = New(0.1, 10, 0, 1)
	assert.Error(t, err)
}

func TestGenerateRandomly(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 50; i++ {
		s := GenerateRandomlyBasedOnMOAObservations(rng)
		require.Len(t, s.Timeseries, SignalLength)
		assert.Greater(t, s.U0, 0.0)
		assert.Less(t, s.U0, 1.0)
		assert.GreaterOrEqual(t, s.TE, float64(minimumEinsteinTime))
		assert.LessOrEqual(t, s.TE, float64(maximumEinsteinTime))
		for _, m := range s.Magnification {
			assert.False(t, math.IsInf(m, 0) || math.IsNaN(m))
		}
	}
}
