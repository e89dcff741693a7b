package datasets

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio/npz"
)

// SimpleCollection is a directory of npz light curves, each holding a
// "times" and a "fluxes" array.
type SimpleCollection struct {
	Directory       string
	CollectionLabel float64
}

// NewSimpleCollection creates a SimpleCollection over directory.
func NewSimpleCollection(directory string, label float64) *SimpleCollection {
	return &SimpleCollection{Directory: directory, CollectionLabel: label}
}

// Label implements Collection.
func (c *SimpleCollection) Label() float64 {
	return c.CollectionLabel
}

// Paths lists every npz file below the directory.
func (c *SimpleCollection) Paths(ctx context.Context) ([]string, error) {
	return GlobRecursive(ctx, c.Directory, ".npz")
}

// LoadTimesAndFluxes reads the times and fluxes arrays of an npz file.
func (c *SimpleCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open npz %s", path)
	}
	defer r.Close()

	var times, fluxes []float64
	if err := readNpzArray(r, "times", &times); err != nil {
		return nil, nil, errors.Wrapf(err, "npz %s", path)
	}
	if err := readNpzArray(r, "fluxes", &fluxes); err != nil {
		return nil, nil, errors.Wrapf(err, "npz %s", path)
	}
	return times, fluxes, nil
}

func readNpzArray(r *npz.Reader, name string, ptr *[]float64) error {
	for _, key := range r.Keys() {
		if key == name || key == name+".npy" {
			return r.Read(key, ptr)
		}
	}
	return errors.Errorf("no array %q", name)
}

// GlobRecursive lists the files below root with the given extension, sorted.
func GlobRecursive(ctx context.Context, root, ext string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	sort.Strings(paths)
	return paths, nil
}
