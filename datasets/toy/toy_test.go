package toy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/ramjet/datasets"
)

func TestFlatAtValueLabelsMatchFluxes(t *testing.T) {
	var c FlatAtValueCollection
	paths, err := c.Paths(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 10)
	for _, path := range paths {
		label, err := datasets.LoadLabel(c, path)
		require.NoError(t, err)
		times, fluxes, err := datasets.LoadTimesAndFluxes(c, path)
		require.NoError(t, err)
		require.Len(t, times, LightCurveLength)
		assert.Equal(t, label, fluxes[LightCurveLength-1])
	}
}

func TestToyDatabasesSettings(t *testing.T) {
	d := NewDatabaseWithAuxiliary()
	assert.Equal(t, 10, d.BatchSize)
	assert.Equal(t, 1, d.NumberOfParallelProcessesPerMap)
	assert.Equal(t, 100, d.TimeStepsPerExample)
	assert.Equal(t, 2, d.NumberOfAuxiliaryValues)

	aux, err := datasets.LoadAuxiliaryInformation(d.TrainingStandardCollections[1], "toy_sine/0")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, aux)

	identity := NewDatabaseWithFlatValueAsLabel().NormalizeFluxes
	assert.Equal(t, []float64{0.3, 0.3}, identity([]float64{0.3, 0.3}))
}
