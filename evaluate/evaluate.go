package evaluate

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/parallel"
)

// Epsilon clips confidences away from 0 and 1 in the loss.
const Epsilon = 1e-7

// Model predicts label confidences for a batch of examples.
type Model interface {
	Forward(batch []*mat.Dense, training bool) ([][]float64, error)
	RegularizationLoss() float64
}

// BatchSource yields labeled batches, such as a database.Stream.
type BatchSource interface {
	Next(ctx context.Context) (database.Batch, error)
}

// Metrics summarize the predictions on a number of examples. The
// classification counts use the first label only.
type Metrics struct {
	Examples int
	Loss     float64

	TruePositives, FalsePositives int
	TrueNegatives, FalseNegatives int

	// State fingerprints the quantized predictions.
	State [32]byte
}

// Accuracy is the share of correctly classified examples.
func (m Metrics) Accuracy() float64 {
	return ratio(m.TruePositives+m.TrueNegatives, m.Examples)
}

// Precision is the share of positive predictions that were right.
func (m Metrics) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is the share of positive examples that were found.
func (m Metrics) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// BinaryCrossEntropy is the mean cross entropy of the confidences against
// the labels, with confidences clipped to [Epsilon, 1-Epsilon].
func BinaryCrossEntropy(labels, confidences []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var sum float64
	for i, y := range labels {
		p := math.Min(math.Max(confidences[i], Epsilon), 1-Epsilon)
		sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return sum / float64(len(labels))
}

// Evaluate runs model on batches batches of stream. An example is
// predicted positive when its first confidence reaches threshold. The loss
// is the mean cross entropy plus the model's regularization loss.
func Evaluate(ctx context.Context, model Model, stream BatchSource, batches int, threshold float64) (Metrics, error) {
	var m Metrics
	var lossSum float64
	var quantized []uint16
	for b := 0; b < batches; b++ {
		batch, err := stream.Next(ctx)
		if err != nil {
			return Metrics{}, errors.Wrapf(err, "batch %d", b)
		}
		confidences, err := model.Forward(batch.Fluxes, false)
		if err != nil {
			return Metrics{}, errors.Wrapf(err, "predict batch %d", b)
		}
		for i, c := range confidences {
			labels := batch.Labels[i]
			if len(c) != len(labels) {
				return Metrics{}, errors.Errorf("%d confidences for %d labels", len(c), len(labels))
			}
			lossSum += BinaryCrossEntropy(labels, c)
			quantized = append(quantized, uint16(math.Round(c[0]*math.MaxUint16)))
			m.Examples++
			positive, actual := c[0] >= threshold, labels[0] >= 0.5
			switch {
			case positive && actual:
				m.TruePositives++
			case positive:
				m.FalsePositives++
			case actual:
				m.FalseNegatives++
			default:
				m.TrueNegatives++
			}
		}
	}
	if m.Examples > 0 {
		m.Loss = lossSum / float64(m.Examples)
	}
	m.Loss += model.RegularizationLoss()

	h := parallel.NewUint16Hasher(len(quantized))
	parallel.ForEach(len(quantized), 0, func(i int) {
		h.MustPutUint16(i, quantized[i])
	})
	m.State = h.Sum()
	return m, nil
}
