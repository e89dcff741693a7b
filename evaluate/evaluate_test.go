package evaluate

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/database"
)

// meanModel predicts the mean flux of each example.
type meanModel struct {
	penalty float64
	saved   []string
	loaded  []string
}

func (m *meanModel) Forward(batch []*mat.Dense, training bool) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, x := range batch {
		out[i] = []float64{mat.Sum(x) / float64(len(x.RawMatrix().Data))}
	}
	return out, nil
}

func (m *meanModel) RegularizationLoss() float64 { return m.penalty }

func (m *meanModel) WriteCompressedWeightsToFile(name string) error {
	m.saved = append(m.saved, name)
	return nil
}

func (m *meanModel) ReadCompressedWeightsFromFile(name string) error {
	if _, err := os.Stat(name); err != nil {
		return err
	}
	m.loaded = append(m.loaded, name)
	return nil
}

type fixedStream struct {
	batch database.Batch
	err   error
}

func (s *fixedStream) Next(ctx context.Context) (database.Batch, error) {
	return s.batch, s.err
}

func example(value float64) *mat.Dense {
	return mat.NewDense(2, 1, []float64{value, value})
}

func stream() *fixedStream {
	return &fixedStream{batch: database.Batch{
		Fluxes: []*mat.Dense{example(0.9), example(0.2), example(0.7), example(0.4)},
		Labels: [][]float64{{1}, {0}, {0}, {1}},
	}}
}

func TestEvaluateCounts(t *testing.T) {
	m, err := Evaluate(context.Background(), &meanModel{penalty: 0.25}, stream(), 2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 8, m.Examples)
	assert.Equal(t, 2, m.TruePositives)
	assert.Equal(t, 2, m.FalsePositives)
	assert.Equal(t, 2, m.TrueNegatives)
	assert.Equal(t, 2, m.FalseNegatives)
	assert.Equal(t, 0.5, m.Accuracy())
	assert.Equal(t, 0.5, m.Precision())
	assert.Equal(t, 0.5, m.Recall())

	expected := -(math.Log(0.9)+math.Log(0.8)+math.Log(0.3)+math.Log(0.4))/4 + 0.25
	assert.InDelta(t, expected, m.Loss, 1e-9)
}

func TestEvaluateStateFollowsPredictions(t *testing.T) {
	a, err := Evaluate(context.Background(), &meanModel{}, stream(), 1, 0.5)
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), &meanModel{}, stream(), 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, a.State, b.State)

	other := stream()
	other.batch.Fluxes[0] = example(0.1)
	c, err := Evaluate(context.Background(), &meanModel{}, other, 1, 0.5)
	require.NoError(t, err)
	assert.NotEqual(t, a.State, c.State)
}

func TestEvaluatePropagatesStreamErrors(t *testing.T) {
	_, err := Evaluate(context.Background(), &meanModel{}, &fixedStream{err: database.ErrNoPaths}, 1, 0.5)
	assert.True(t, errors.Is(err, database.ErrNoPaths))
}

func TestBinaryCrossEntropyClips(t *testing.T) {
	loss := BinaryCrossEntropy([]float64{1}, []float64{0})
	assert.InDelta(t, -math.Log(Epsilon), loss, 1e-6)
	assert.InDelta(t, 0, BinaryCrossEntropy([]float64{1, 0}, []float64{1, 0}), 1e-6)
}

func TestSampleSize(t *testing.T) {
	assert.Equal(t, 0, SampleSize(0, 0.95, 0.05))
	assert.Equal(t, 10, SampleSize(10, 0.95, 0.05))
	// 1.96² × 0.25 / 0.05² = 384.15, corrected for a population of 10000
	assert.Equal(t, 370, SampleSize(10000, 0.95, 0.05))
	// 2.576² × 0.25 / 0.01² = 16587, corrected for a population of 100000
	assert.Equal(t, 14228, SampleSize(100000, 0.99, 0.01))
	assert.Greater(t, SampleSize(10000, 0.99, 0.05), SampleSize(10000, 0.95, 0.05))
	assert.Greater(t, SampleSize(10000, 0.95, 0.02), SampleSize(10000, 0.95, 0.05))
	assert.Equal(t, 500, SampleSize(500, 1, 0.05))
	assert.Equal(t, 500, SampleSize(500, 0.95, 0))
	assert.Equal(t, 4, BatchesForSampleSize(10000, 0.95, 0.05, 100))
	assert.Equal(t, 0, BatchesForSampleSize(10000, 0.95, 0.05, 0))
}

func TestEvaluateFuncKeepsBest(t *testing.T) {
	model := &meanModel{}
	best := 0.4
	f := NewEvaluateFunc(model, stream(), 1, 0.5, &best, "best.json.lzw")
	_, err := f(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"best.json.lzw"}, model.saved)
	assert.Equal(t, 0.5, best)

	_, err = f(context.Background())
	require.NoError(t, err)
	assert.Len(t, model.saved, 1)
}

func TestResume(t *testing.T) {
	model := &meanModel{}
	require.NoError(t, Resume(context.Background(), model, false, "missing"))
	assert.Error(t, Resume(context.Background(), model, true, filepath.Join(t.TempDir(), "missing")))

	path := filepath.Join(t.TempDir(), "weights")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, Resume(context.Background(), model, true, path))
	assert.Equal(t, []string{path}, model.loaded)
}
