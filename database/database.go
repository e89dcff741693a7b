// Package database turns light curve collections into shuffled, balanced,
// infinitely repeating streams of fixed length training examples.
package database

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/parallel"
)

// ErrNoPaths is returned by a stream whose collection lists no paths.
var ErrNoPaths = errors.New("collection has no paths")

// MaxConsecutiveFailures is how many examples in a row a collection may fail
// to load before its stream fails.
const MaxConsecutiveFailures = 100

const (
	DefaultShuffleBufferSize   = 10000
	DefaultTimeStepsPerExample = 20000
	DefaultBatchSize           = 100
)

// StandardAndInjected draws standard examples from labeled collections and
// injected examples by adding injectable signals to injectee light curves.
type StandardAndInjected struct {
	TrainingStandardCollections   []datasets.Collection
	TrainingInjecteeCollection    datasets.Collection
	TrainingInjectableCollections []datasets.Collection

	ValidationStandardCollections   []datasets.Collection
	ValidationInjecteeCollection    datasets.Collection
	ValidationInjectableCollections []datasets.Collection

	InferenceCollections []datasets.Collection

	ShuffleBufferSize               int
	TimeStepsPerExample             int
	BatchSize                       int
	NumberOfParallelProcessesPerMap int
	NumberOfAuxiliaryValues         int
	OutOfBoundsInjectionHandling    OutOfBoundsInjectionHandling

	// NormalizeFluxes defaults to NormalizeOnPercentiles.
	NormalizeFluxes func([]float64) []float64

	// Seed makes the streams reproducible. 0 seeds from the clock.
	Seed int64
}

// New returns a database with the default settings and no collections.
func New() *StandardAndInjected {
	return &StandardAndInjected{
		ShuffleBufferSize:               DefaultShuffleBufferSize,
		TimeStepsPerExample:             DefaultTimeStepsPerExample,
		BatchSize:                       DefaultBatchSize,
		NumberOfParallelProcessesPerMap: parallel.DefaultLimit(),
		OutOfBoundsInjectionHandling:    FullSignal,
		NormalizeFluxes:                 NormalizeOnPercentiles,
	}
}

func (d *StandardAndInjected) timeSteps() int {
	if d.TimeStepsPerExample <= 0 {
		return DefaultTimeStepsPerExample
	}
	return d.TimeStepsPerExample
}

func (d *StandardAndInjected) batchSize() int {
	if d.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return d.BatchSize
}

func (d *StandardAndInjected) shuffleBufferSize() int {
	if d.ShuffleBufferSize <= 0 {
		return DefaultShuffleBufferSize
	}
	return d.ShuffleBufferSize
}

func (d *StandardAndInjected) workers() int {
	if d.NumberOfParallelProcessesPerMap <= 0 {
		return parallel.DefaultLimit()
	}
	return d.NumberOfParallelProcessesPerMap
}

// seeds derives independent generators for the streams of one database.
type seeds struct {
	seed uint64
	next uint64
}

func (d *StandardAndInjected) seeds() *seeds {
	seed := uint64(d.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &seeds{seed: seed}
}

func (s *seeds) rand() *rand.Rand {
	s.next++
	return rand.New(rand.NewPCG(s.seed, s.next))
}

// GenerateDatasets starts the training and validation streams. Both must be
// closed by the caller.
func (d *StandardAndInjected) GenerateDatasets(ctx context.Context) (training, validation *Stream, err error) {
	s := d.seeds()
	training, err = d.generateStream(ctx, "training", s, d.TrainingStandardCollections, d.TrainingInjecteeCollection, d.TrainingInjectableCollections)
	if err != nil {
		return nil, nil, errors.Wrap(err, "training")
	}
	validation, err = d.generateStream(ctx, "validation", s, d.ValidationStandardCollections, d.ValidationInjecteeCollection, d.ValidationInjectableCollections)
	if err != nil {
		training.Close()
		return nil, nil, errors.Wrap(err, "validation")
	}
	return training, validation, nil
}
