package evaluate

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/internal/ctxlog"
)

// WeightsFile is a model whose weights persist to files.
type WeightsFile interface {
	WriteCompressedWeightsToFile(name string) error
	ReadCompressedWeightsFromFile(name string) error
}

// Resume loads the weights at dstmodel into net when resume is set.
func Resume(ctx context.Context, net WeightsFile, resume bool, dstmodel string) error {
	if !resume || dstmodel == "" {
		return nil
	}
	if err := net.ReadCompressedWeightsFromFile(dstmodel); err != nil {
		return errors.Wrapf(err, "resume from %s", dstmodel)
	}
	ctxlog.FromContext(ctx).Info("Resumed weights.", "path", dstmodel)
	return nil
}

// EvaluatedModel is a model that can be evaluated and saved.
type EvaluatedModel interface {
	Model
	WeightsFile
}

// NewEvaluateFunc returns a function evaluating net on batches batches of
// stream. Without dstmodel each evaluation is saved as
// output.<accuracy>.json.lzw. With dstmodel the weights are saved there
// whenever the accuracy beats best, which is updated.
func NewEvaluateFunc(net EvaluatedModel, stream BatchSource, batches int, threshold float64, best *float64, dstmodel string) func(ctx context.Context) (Metrics, error) {
	return func(ctx context.Context) (Metrics, error) {
		m, err := Evaluate(ctx, net, stream, batches, threshold)
		if err != nil {
			return Metrics{}, err
		}
		log := ctxlog.FromContext(ctx)
		log.Info("Evaluated.",
			"examples", m.Examples, "loss", m.Loss, "accuracy", m.Accuracy(),
			"precision", m.Precision(), "recall", m.Recall(), "state", fmt.Sprintf("%x", m.State[:8]))

		accuracy := m.Accuracy()
		if dstmodel == "" {
			name := fmt.Sprintf("output.%d.json.lzw", int(accuracy*100))
			if err := net.WriteCompressedWeightsToFile(name); err != nil {
				return m, errors.Wrapf(err, "save %s", name)
			}
			return m, nil
		}
		if best == nil || accuracy > *best {
			if err := net.WriteCompressedWeightsToFile(dstmodel); err != nil {
				return m, errors.Wrapf(err, "save %s", dstmodel)
			}
			log.Info("Saved improved weights.", "path", dstmodel, "accuracy", accuracy)
			if best != nil {
				*best = accuracy
			}
		}
		return m, nil
	}
}
