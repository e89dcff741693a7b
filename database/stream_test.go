package database_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/datasets/toy"
	"github.com/neurlang/ramjet/internal/ctxlog"
)

func quietContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func generate(t *testing.T, d *database.StandardAndInjected) (*database.Stream, *database.Stream) {
	t.Helper()
	d.Seed = 7
	d.ShuffleBufferSize = 4
	training, validation, err := d.GenerateDatasets(quietContext(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, training.Close())
		assert.NoError(t, validation.Close())
	})
	return training, validation
}

func TestToyBatchesAreBalanced(t *testing.T) {
	training, validation := generate(t, toy.NewDatabase())
	for _, stream := range []*database.Stream{training, validation} {
		for range 3 {
			batch, err := stream.Next(context.Background())
			require.NoError(t, err)
			require.Equal(t, 10, batch.Len())
			for i, fluxes := range batch.Fluxes {
				rows, cols := fluxes.Dims()
				assert.Equal(t, 100, rows)
				assert.Equal(t, 1, cols)
				assert.Equal(t, []float64{float64(i % 2)}, batch.Labels[i])
			}
			assert.Empty(t, batch.Auxiliary)
		}
	}
}

func TestToyFlatExamplesNormalizeToZero(t *testing.T) {
	training, _ := generate(t, toy.NewDatabase())
	batch, err := training.Next(context.Background())
	require.NoError(t, err)
	for i, fluxes := range batch.Fluxes {
		if batch.Labels[i][0] != 0 {
			continue
		}
		for r := 0; r < 100; r++ {
			require.Equal(t, 0.0, fluxes.At(r, 0))
		}
	}
}

func TestToyAuxiliaryValues(t *testing.T) {
	training, _ := generate(t, toy.NewDatabaseWithAuxiliary())
	batch, err := training.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Auxiliary, 10)
	for i, aux := range batch.Auxiliary {
		label := batch.Labels[i][0]
		assert.Equal(t, []float64{label, label}, aux)
	}
}

func TestToyFlatValueAsLabel(t *testing.T) {
	training, _ := generate(t, toy.NewDatabaseWithFlatValueAsLabel())
	batch, err := training.Next(context.Background())
	require.NoError(t, err)
	for i, fluxes := range batch.Fluxes {
		assert.Equal(t, batch.Labels[i][0], fluxes.At(0, 0))
		assert.Equal(t, batch.Labels[i][0], fluxes.At(99, 0))
	}
}

func flatCollection(label float64, paths ...string) *datasets.Custom {
	return &datasets.Custom{
		CollectionLabel: label,
		PathsFunc: func(ctx context.Context) ([]string, error) {
			return paths, nil
		},
		FluxesFunc: func(path string) ([]float64, []float64, error) {
			times := make([]float64, 100)
			fluxes := make([]float64, 100)
			for i := range times {
				times[i] = float64(i)
				fluxes[i] = 1
			}
			return times, fluxes, nil
		},
	}
}

func TestInjectedExamplesTakeInjectableLabel(t *testing.T) {
	injectable := &datasets.Custom{
		CollectionLabel: 1,
		PathsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"signal"}, nil
		},
		MagnificationsFunc: func(path string) ([]float64, []float64, error) {
			return []float64{0, 5, 10}, []float64{1, 3, 1}, nil
		},
	}
	d := database.New()
	d.BatchSize = 6
	d.TimeStepsPerExample = 50
	d.NumberOfParallelProcessesPerMap = 2
	d.TrainingStandardCollections = []datasets.Collection{flatCollection(0, "a", "b")}
	d.TrainingInjecteeCollection = flatCollection(0, "c")
	d.TrainingInjectableCollections = []datasets.Collection{injectable}
	d.ValidationStandardCollections = d.TrainingStandardCollections
	training, _ := generate(t, d)

	batch, err := training.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, batch.Len())
	for i := range batch.Labels {
		assert.Equal(t, []float64{float64(i % 2)}, batch.Labels[i])
	}
}

func TestInjectablesNeedInjectee(t *testing.T) {
	d := database.New()
	d.TrainingInjectableCollections = []datasets.Collection{flatCollection(1, "a")}
	d.ValidationStandardCollections = []datasets.Collection{flatCollection(0, "b")}
	_, _, err := d.GenerateDatasets(quietContext(t))
	assert.Error(t, err)
}

func TestEmptyCollectionFailsWithErrNoPaths(t *testing.T) {
	d := database.New()
	d.BatchSize = 2
	d.TrainingStandardCollections = []datasets.Collection{flatCollection(0)}
	d.ValidationStandardCollections = []datasets.Collection{flatCollection(0, "a")}
	training, _ := generateFailing(t, d)
	_, err := training.Next(context.Background())
	assert.True(t, errors.Is(err, database.ErrNoPaths), "%v", err)
}

func TestConsecutiveFailuresFailTheStream(t *testing.T) {
	broken := flatCollection(0, "a", "b", "c")
	broken.FluxesFunc = func(path string) ([]float64, []float64, error) {
		return nil, nil, errors.New("corrupt file")
	}
	d := database.New()
	d.BatchSize = 2
	d.NumberOfParallelProcessesPerMap = 1
	d.TrainingStandardCollections = []datasets.Collection{broken}
	d.ValidationStandardCollections = []datasets.Collection{flatCollection(0, "a")}
	training, _ := generateFailing(t, d)
	_, err := training.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive failures")
}

func generateFailing(t *testing.T, d *database.StandardAndInjected) (*database.Stream, *database.Stream) {
	t.Helper()
	d.Seed = 3
	d.ShuffleBufferSize = 2
	training, validation, err := d.GenerateDatasets(quietContext(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		training.Close()
		validation.Close()
	})
	return training, validation
}

func TestInferenceDatasetIsOnePass(t *testing.T) {
	d := toy.NewDatabase()
	stream := d.GenerateInferenceDataset(quietContext(t))
	defer stream.Close()

	paths := map[string]bool{}
	for {
		e, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		paths[e.Path] = true
		rows, _ := e.Fluxes.Dims()
		assert.Equal(t, 100, rows)
	}
	assert.Len(t, paths, 20)
}

func TestInferenceBatchesEndShort(t *testing.T) {
	d := toy.NewDatabase()
	stream := d.GenerateInferenceDataset(quietContext(t))
	defer stream.Close()

	total := 0
	for {
		batch, err := stream.NextBatch(context.Background(), 7)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		total += batch.Len()
	}
	assert.Equal(t, 20, total)
}
