// Package inference ranks light curves by the confidence a network assigns them.
package inference

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/internal/ctxlog"
)

// Model predicts label confidences for a batch of examples.
type Model interface {
	Forward(batch []*mat.Dense, training bool) ([][]float64, error)
}

// ExampleSource yields batches until io.EOF, such as a database.InferenceStream.
type ExampleSource interface {
	NextBatch(ctx context.Context, size int) (database.Batch, error)
}

// Result is the prediction for one light curve.
type Result struct {
	Path        string
	Confidences []float64
}

// Infer predicts every example of stream in batches of batchSize. Results
// are sorted by their first confidence, highest first.
func Infer(ctx context.Context, model Model, stream ExampleSource, batchSize int) ([]Result, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	log := ctxlog.FromContext(ctx)
	var results []Result
	for {
		batch, err := stream.NextBatch(ctx, batchSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "next batch")
		}
		confidences, err := model.Forward(batch.Fluxes, false)
		if err != nil {
			return nil, errors.Wrap(err, "predict")
		}
		for i, c := range confidences {
			results = append(results, Result{Path: batch.Paths[i], Confidences: c})
		}
		log.Debug("Inferred batch.", "examples", len(results))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidences[0] > results[j].Confidences[0]
	})
	return results, nil
}

// WriteCSV writes a header and one row of path and confidences per result.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	header := []string{"light_curve_path"}
	if len(results) > 0 {
		for i := range results[0].Confidences {
			header = append(header, "confidence_"+strconv.Itoa(i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := make([]string, 0, 1+len(r.Confidences))
		row = append(row, r.Path)
		for _, c := range r.Confidences {
			row = append(row, strconv.FormatFloat(c, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
