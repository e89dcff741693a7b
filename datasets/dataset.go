// Package datasets implements the light curve collections the databases draw
// labeled examples from.
package datasets

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMethodNotImplemented is returned when a collection is asked for data it can't provide.
var ErrMethodNotImplemented = errors.New("light curve collection method not implemented")

// Collection is a labeled source of light curve paths.
type Collection interface {

	// Label is the label given to every example of the collection.
	Label() float64

	// Paths lists the light curve paths of the collection. Every call starts a
	// new pass, so collections may reorder between calls.
	Paths(ctx context.Context) ([]string, error)
}

// FluxLoader is implemented by collections usable as standard collections or injectees.
type FluxLoader interface {
	LoadTimesAndFluxes(path string) (times, fluxes []float64, err error)
}

// MagnificationLoader is implemented by collections usable as injectables.
type MagnificationLoader interface {
	LoadTimesAndMagnifications(path string) (times, magnifications []float64, err error)
}

// AuxiliaryLoader is implemented by collections providing auxiliary values per light curve.
type AuxiliaryLoader interface {
	LoadAuxiliaryInformation(path string) ([]float64, error)
}

// LoadTimesAndFluxes loads from c, or fails with ErrMethodNotImplemented.
func LoadTimesAndFluxes(c Collection, path string) ([]float64, []float64, error) {
	l, ok := c.(FluxLoader)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMethodNotImplemented, "%T can't load times and fluxes", c)
	}
	return l.LoadTimesAndFluxes(path)
}

// LoadTimesAndMagnifications loads from c, or fails with ErrMethodNotImplemented.
func LoadTimesAndMagnifications(c Collection, path string) ([]float64, []float64, error) {
	l, ok := c.(MagnificationLoader)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMethodNotImplemented, "%T can't load times and magnifications", c)
	}
	return l.LoadTimesAndMagnifications(path)
}

// LoadAuxiliaryInformation loads from c, or fails with ErrMethodNotImplemented.
func LoadAuxiliaryInformation(c Collection, path string) ([]float64, error) {
	l, ok := c.(AuxiliaryLoader)
	if !ok {
		return nil, errors.Wrapf(ErrMethodNotImplemented, "%T has no auxiliary information", c)
	}
	return l.LoadAuxiliaryInformation(path)
}

// Custom is a collection assembled from functions. Nil functions make the
// matching capability report ErrMethodNotImplemented.
type Custom struct {
	CollectionLabel float64

	PathsFunc          func(ctx context.Context) ([]string, error)
	FluxesFunc         func(path string) ([]float64, []float64, error)
	MagnificationsFunc func(path string) ([]float64, []float64, error)
	AuxiliaryFunc      func(path string) ([]float64, error)
}

// Label implements Collection.
func (c *Custom) Label() float64 {
	return c.CollectionLabel
}

// Paths implements Collection.
func (c *Custom) Paths(ctx context.Context) ([]string, error) {
	if c.PathsFunc == nil {
		return nil, errors.Wrap(ErrMethodNotImplemented, "no paths function")
	}
	return c.PathsFunc(ctx)
}

// LoadTimesAndFluxes implements FluxLoader.
func (c *Custom) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	if c.FluxesFunc == nil {
		return nil, nil, errors.Wrap(ErrMethodNotImplemented, "no fluxes function")
	}
	return c.FluxesFunc(path)
}

// LoadTimesAndMagnifications implements MagnificationLoader.
func (c *Custom) LoadTimesAndMagnifications(path string) ([]float64, []float64, error) {
	if c.MagnificationsFunc == nil {
		return nil, nil, errors.Wrap(ErrMethodNotImplemented, "no magnifications function")
	}
	return c.MagnificationsFunc(path)
}

// LoadAuxiliaryInformation implements AuxiliaryLoader.
func (c *Custom) LoadAuxiliaryInformation(path string) ([]float64, error) {
	if c.AuxiliaryFunc == nil {
		return nil, errors.Wrap(ErrMethodNotImplemented, "no auxiliary function")
	}
	return c.AuxiliaryFunc(path)
}

// WithAuxiliary wraps c so that it also provides auxiliary information.
func WithAuxiliary(c Collection, aux func(path string) ([]float64, error)) Collection {
	return &auxiliaryCollection{Collection: c, aux: aux}
}

type auxiliaryCollection struct {
	Collection
	aux func(path string) ([]float64, error)
}

func (a *auxiliaryCollection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	return LoadTimesAndFluxes(a.Collection, path)
}

func (a *auxiliaryCollection) LoadTimesAndMagnifications(path string) ([]float64, []float64, error) {
	return LoadTimesAndMagnifications(a.Collection, path)
}

func (a *auxiliaryCollection) LoadAuxiliaryInformation(path string) ([]float64, error) {
	return a.aux(path)
}

// LabelLoader is implemented by collections whose label varies per path.
type LabelLoader interface {
	LoadLabel(path string) (float64, error)
}

// LoadLabel returns the label of the example at path, falling back to the
// collection label.
func LoadLabel(c Collection, path string) (float64, error) {
	if l, ok := c.(LabelLoader); ok {
		return l.LoadLabel(path)
	}
	return c.Label(), nil
}

func (a *auxiliaryCollection) LoadLabel(path string) (float64, error) {
	return LoadLabel(a.Collection, path)
}
