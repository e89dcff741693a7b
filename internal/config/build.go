package config

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/datasets/moa"
	"github.com/neurlang/ramjet/datasets/tess"
	"github.com/neurlang/ramjet/datasets/toy"
	"github.com/neurlang/ramjet/internal/ctxlog"
)

// DefaultDriver is the database/sql driver used when a metadatabase block
// names none. The commands register it by importing modernc.org/sqlite.
const DefaultDriver = "sqlite"

// Collection types.
const (
	TypeSimple         = "simple"
	TypeMOAPositive    = "moa_positive"
	TypeMOANegative    = "moa_negative"
	TypeMOAPSPL        = "moa_pspl"
	TypeMOAGenerated   = "moa_generated"
	TypeTESS           = "tess"
	TypeToyFlat        = "toy_flat"
	TypeToySine        = "toy_sine"
	TypeToyFlatAtValue = "toy_flat_at_value"
)

// OpenMetadatabase opens the configured metadatabase and makes sure the TESS
// table exists. It returns nil without error when no metadatabase is
// configured.
func (f *File) OpenMetadatabase(ctx context.Context) (*sql.DB, error) {
	if f.Metadatabase == nil {
		return nil, nil
	}
	driver := f.Metadatabase.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	db, err := sql.Open(driver, f.Metadatabase.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s metadatabase", driver)
	}
	if driver == DefaultDriver {
		// sqlite allows one writer, and every connection to :memory: is a new database.
		db.SetMaxOpenConns(1)
	}
	if err := tess.CreateTable(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// BuildDatabase resolves the collection names of the database block. db may
// be nil when no collection needs the metadatabase.
func (f *File) BuildDatabase(ctx context.Context, db *sql.DB) (*database.StandardAndInjected, error) {
	c := f.Database
	if c == nil {
		return nil, errors.New("no database block")
	}
	d := database.New()
	if c.ShuffleBufferSize != nil {
		d.ShuffleBufferSize = *c.ShuffleBufferSize
	}
	if c.TimeStepsPerExample != nil {
		d.TimeStepsPerExample = *c.TimeStepsPerExample
	}
	if c.BatchSize != nil {
		d.BatchSize = *c.BatchSize
	}
	if c.NumberOfParallelProcessesPerMap != nil {
		d.NumberOfParallelProcessesPerMap = *c.NumberOfParallelProcessesPerMap
	}
	if c.NumberOfAuxiliaryValues != nil {
		d.NumberOfAuxiliaryValues = *c.NumberOfAuxiliaryValues
	}
	if c.Seed != nil {
		d.Seed = *c.Seed
	}
	if c.OutOfBoundsInjectionHandling != "" {
		h, err := database.ParseOutOfBoundsInjectionHandling(c.OutOfBoundsInjectionHandling)
		if err != nil {
			return nil, err
		}
		d.OutOfBoundsInjectionHandling = h
	}

	b := &builder{file: f, db: db, seed: uint64(d.Seed), built: make(map[string]datasets.Collection)}
	var err error
	if d.TrainingStandardCollections, err = b.collections(c.TrainingStandard); err != nil {
		return nil, errors.Wrap(err, "training_standard")
	}
	if d.TrainingInjecteeCollection, err = b.optional(c.TrainingInjectee); err != nil {
		return nil, errors.Wrap(err, "training_injectee")
	}
	if d.TrainingInjectableCollections, err = b.collections(c.TrainingInjectable); err != nil {
		return nil, errors.Wrap(err, "training_injectable")
	}
	if d.ValidationStandardCollections, err = b.collections(c.ValidationStandard); err != nil {
		return nil, errors.Wrap(err, "validation_standard")
	}
	if d.ValidationInjecteeCollection, err = b.optional(c.ValidationInjectee); err != nil {
		return nil, errors.Wrap(err, "validation_injectee")
	}
	if d.ValidationInjectableCollections, err = b.collections(c.ValidationInjectable); err != nil {
		return nil, errors.Wrap(err, "validation_injectable")
	}
	if d.InferenceCollections, err = b.collections(c.Inference); err != nil {
		return nil, errors.Wrap(err, "inference")
	}
	ctxlog.FromContext(ctx).Debug("Built database.", "collections", len(b.built), "batch_size", d.BatchSize, "time_steps", d.TimeStepsPerExample)
	return d, nil
}

// builder creates each named collection once, so a collection used by several
// streams is shared.
type builder struct {
	file    *File
	db      *sql.DB
	seed    uint64
	counter atomic.Uint64
	built   map[string]datasets.Collection
}

func (b *builder) collections(names []string) ([]datasets.Collection, error) {
	out := make([]datasets.Collection, 0, len(names))
	for _, name := range names {
		c, err := b.collection(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *builder) optional(name string) (datasets.Collection, error) {
	if name == "" {
		return nil, nil
	}
	return b.collection(name)
}

func (b *builder) collection(name string) (datasets.Collection, error) {
	if c, ok := b.built[name]; ok {
		return c, nil
	}
	decl, ok := b.file.Collections[name]
	if !ok {
		return nil, errors.Errorf("unknown collection %q", name)
	}
	c, err := b.create(decl)
	if err != nil {
		return nil, errors.Wrapf(err, "collection %q", name)
	}
	b.built[name] = c
	return c, nil
}

func (b *builder) create(c *Collection) (datasets.Collection, error) {
	label := func(fallback float64) float64 {
		if c.Label != nil {
			return *c.Label
		}
		return fallback
	}
	needDirectory := func() error {
		if c.Directory == "" {
			return errors.Errorf("%s collection needs a directory", c.Type)
		}
		return nil
	}
	switch c.Type {
	case TypeSimple:
		if err := needDirectory(); err != nil {
			return nil, err
		}
		return datasets.NewSimpleCollection(c.Directory, label(0)), nil
	case TypeMOAPositive:
		if err := needDirectory(); err != nil {
			return nil, err
		}
		return moa.NewPositiveCollection(c.Directory, c.DatasetSplits, c.SplitPieces), nil
	case TypeMOANegative:
		if err := needDirectory(); err != nil {
			return nil, err
		}
		return moa.NewNegativeCollection(c.Directory, c.DatasetSplits, c.SplitPieces), nil
	case TypeMOAPSPL:
		if err := needDirectory(); err != nil {
			return nil, err
		}
		return &moa.PSPLSignalCollection{Directory: c.Directory}, nil
	case TypeMOAGenerated:
		return &moa.GeneratedSignalCollection{Rand: b.rand()}, nil
	case TypeTESS:
		if b.db == nil {
			return nil, errors.New("tess collection needs a metadatabase block")
		}
		return tess.NewCollection(b.db, label(0), c.DatasetSplits), nil
	case TypeToyFlat:
		return toy.FlatCollection{}, nil
	case TypeToySine:
		return toy.SineWaveCollection{}, nil
	case TypeToyFlatAtValue:
		return toy.FlatAtValueCollection{}, nil
	default:
		return nil, errors.Errorf("unknown collection type %q", c.Type)
	}
}

// rand returns nil for an unseeded database, leaving generation to the
// collection's own randomness.
func (b *builder) rand() func() *rand.Rand {
	if b.seed == 0 {
		return nil
	}
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(b.seed, b.counter.Add(1)|1<<63))
	}
}
