package inference_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/datasets/toy"
	"github.com/neurlang/ramjet/inference"
	"github.com/neurlang/ramjet/internal/ctxlog"
)

// spreadModel is more confident the more the fluxes vary.
type spreadModel struct{}

func (spreadModel) Forward(batch []*mat.Dense, training bool) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, x := range batch {
		out[i] = []float64{mat.Max(x) - mat.Min(x)}
	}
	return out, nil
}

func TestInferRanksSineWavesFirst(t *testing.T) {
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	stream := toy.NewDatabase().GenerateInferenceDataset(ctx)
	defer stream.Close()

	results, err := inference.Infer(ctx, spreadModel{}, stream, 3)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		if i < 10 {
			assert.True(t, strings.HasPrefix(r.Path, "toy_sine/"), r.Path)
		} else {
			assert.True(t, strings.HasPrefix(r.Path, "toy_flat/"), r.Path)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, inference.WriteCSV(&buf, []inference.Result{
		{Path: "a.fits", Confidences: []float64{0.75, 0.5}},
		{Path: "b,c.fits", Confidences: []float64{0.25, 1}},
	}))
	assert.Equal(t, "light_curve_path,confidence_0,confidence_1\na.fits,0.75,0.5\n\"b,c.fits\",0.25,1\n", buf.String())
}
