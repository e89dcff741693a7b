// Package moa implements the MOA microlensing light curve and signal collections.
package moa

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/datasets/microlensing"
	"github.com/neurlang/ramjet/lightcurve"
)

const splitShuffleSeed = 42

// DefaultDatasetSplits are the blocks used for training when none are given.
var DefaultDatasetSplits = []int{1, 2, 3, 4}

// DefaultSplitPieces is the number of blocks the light curves are cut into.
const DefaultSplitPieces = 5

// splitCollection is a directory of MOA feather light curves cut into
// reproducible dataset split blocks.
type splitCollection struct {
	Directory     string
	DatasetSplits []int
	SplitPieces   int
	label         float64
}

// Label implements datasets.Collection.
func (c *splitCollection) Label() float64 {
	return c.label
}

// Paths shuffles the directory listing with a fixed seed, cuts it into
// SplitPieces equal blocks and returns the blocks in DatasetSplits.
// Light curves beyond the last full block are never used.
func (c *splitCollection) Paths(ctx context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(c.Directory, "*.feather"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", c.Directory)
	}
	return SplitPaths(paths, c.DatasetSplits, c.SplitPieces)
}

// SplitPaths sorts and shuffles paths with a fixed seed and returns the
// concatenation of the requested blocks out of pieces equal blocks.
func SplitPaths(paths []string, splits []int, pieces int) ([]string, error) {
	if pieces <= 0 {
		return nil, errors.Errorf("split pieces must be positive, got %d", pieces)
	}
	paths = append([]string(nil), paths...)
	sort.Strings(paths)
	rng := rand.New(rand.NewPCG(splitShuffleSeed, splitShuffleSeed))
	rng.Shuffle(len(paths), func(i, j int) { paths[i], paths[j] = paths[j], paths[i] })

	perBlock := len(paths) / pieces
	var out []string
	for _, block := range splits {
		if block < 0 || block >= pieces {
			return nil, errors.Errorf("dataset split %d out of range [0, %d)", block, pieces)
		}
		out = append(out, paths[block*perBlock:(block+1)*perBlock]...)
	}
	return out, nil
}

// LoadTimesAndFluxes reads the HJD and flux columns.
func (c *splitCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	columns, err := lightcurve.ReadFeatherColumns(path, "HJD", "flux")
	if err != nil {
		return nil, nil, err
	}
	return columns["HJD"], columns["flux"], nil
}

// PositiveCollection holds MOA light curves with previously detected microlensing events.
type PositiveCollection struct {
	splitCollection
}

// NewPositiveCollection creates a positive collection; nil splits and zero
// pieces select the defaults.
func NewPositiveCollection(directory string, splits []int, pieces int) *PositiveCollection {
	return &PositiveCollection{newSplitCollection(directory, splits, pieces, 1)}
}

// NegativeCollection holds MOA light curves without a microlensing event.
type NegativeCollection struct {
	splitCollection
}

// NewNegativeCollection creates a negative collection; nil splits and zero
// pieces select the defaults.
func NewNegativeCollection(directory string, splits []int, pieces int) *NegativeCollection {
	return &NegativeCollection{newSplitCollection(directory, splits, pieces, 0)}
}

func newSplitCollection(directory string, splits []int, pieces int, label float64) splitCollection {
	if splits == nil {
		splits = DefaultDatasetSplits
	}
	if pieces == 0 {
		pieces = DefaultSplitPieces
	}
	return splitCollection{Directory: directory, DatasetSplits: splits, SplitPieces: pieces, label: label}
}

// PSPLSignalCollection is a directory of synthetic PSPL signals stored as
// feather files with Time and Magnification columns.
type PSPLSignalCollection struct {
	Directory string
}

// Label implements datasets.Collection.
func (c *PSPLSignalCollection) Label() float64 {
	return 1
}

// Paths lists the signal files.
func (c *PSPLSignalCollection) Paths(ctx context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(c.Directory, "*.feather"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", c.Directory)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadTimesAndMagnifications reads a signal file.
func (c *PSPLSignalCollection) LoadTimesAndMagnifications(path string) ([]float64, []float64, error) {
	columns, err := lightcurve.ReadFeatherColumns(path, "Time", "Magnification")
	if err != nil {
		return nil, nil, err
	}
	return columns["Time"], columns["Magnification"], nil
}

// GeneratedSignalCollection generates a new random PSPL signal on every load.
// It has a single empty path.
type GeneratedSignalCollection struct {
	Rand func() *rand.Rand
}

// Label implements datasets.Collection.
func (c *GeneratedSignalCollection) Label() float64 {
	return 1
}

// Paths returns one empty placeholder path.
func (c *GeneratedSignalCollection) Paths(ctx context.Context) ([]string, error) {
	return []string{""}, nil
}

// LoadTimesAndMagnifications ignores the path and returns a freshly generated signal.
func (c *GeneratedSignalCollection) LoadTimesAndMagnifications(path string) ([]float64, []float64, error) {
	var rng *rand.Rand
	if c.Rand != nil {
		rng = c.Rand()
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := microlensing.GenerateRandomlyBasedOnMOAObservations(rng)
	return s.Timeseries, s.Magnification, nil
}
