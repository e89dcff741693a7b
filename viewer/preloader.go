// Package viewer loads light curves around the one being displayed in the
// background, so stepping through a list of light curves is instant.
package viewer

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/lightcurve"
)

const (
	MinimumPreloaded = 5
	MaximumPreloaded = 10
)

// LoadFunc loads the light curve at path.
type LoadFunc func(ctx context.Context, path string) (*lightcurve.LightCurve, error)

// IndexLightCurvePair links a position in the path list to its light curve.
type IndexLightCurvePair struct {
	Index      int
	LightCurve *lightcurve.LightCurve
}

// Preloader keeps up to MaximumPreloaded light curves loaded on each side of
// the current one and refills to MinimumPreloaded in the background.
type Preloader struct {
	Paths []string
	Load  LoadFunc

	mu       sync.Mutex
	current  *IndexLightCurvePair
	next     *boundedDeque[IndexLightCurvePair]
	previous *boundedDeque[IndexLightCurvePair]

	// generation invalidates loads started before a reset
	generation int
	filling    [2]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const (
	forward = iota
	backward
)

// NewPreloader creates a preloader without a current light curve. Background
// loads outlive ctx cancellation and stop at Close.
func NewPreloader(ctx context.Context, paths []string, load LoadFunc) *Preloader {
	p := &Preloader{
		Paths:    paths,
		Load:     load,
		next:     newBoundedDeque[IndexLightCurvePair](MaximumPreloaded),
		previous: newBoundedDeque[IndexLightCurvePair](MaximumPreloaded),
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	return p
}

// NewPreloaderWithStartingIndex creates a preloader with the light curve at
// index as current and its neighbors loaded.
func NewPreloaderWithStartingIndex(ctx context.Context, paths []string, index int, load LoadFunc) (*Preloader, error) {
	p := NewPreloader(ctx, paths, load)
	if err := p.LoadLightCurveAtIndexAsCurrent(ctx, index); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.LoadSurroundingLightCurves(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Preloader) load(ctx context.Context, index int) (IndexLightCurvePair, error) {
	if index < 0 || index >= len(p.Paths) {
		return IndexLightCurvePair{}, errors.Errorf("index %d out of range of %d light curves", index, len(p.Paths))
	}
	lc, err := p.Load(ctx, p.Paths[index])
	if err != nil {
		return IndexLightCurvePair{}, errors.Wrapf(err, "load %s", p.Paths[index])
	}
	return IndexLightCurvePair{Index: index, LightCurve: lc}, nil
}

// LoadLightCurveAtIndexAsCurrent loads the light curve at index and makes it
// the current one.
func (p *Preloader) LoadLightCurveAtIndexAsCurrent(ctx context.Context, index int) error {
	p.mu.Lock()
	generation := p.generation
	p.mu.Unlock()

	pair, err := p.load(ctx, index)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		return errors.New("preloader was reset while loading")
	}
	p.current = &pair
	return nil
}

// Current returns the current light curve, or false before one is loaded.
func (p *Preloader) Current() (IndexLightCurvePair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return IndexLightCurvePair{}, false
	}
	return *p.current, true
}

// Preloaded lists the indexes loaded before and after the current one.
func (p *Preloader) Preloaded() (previous, next []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pair := range p.previous.Slice() {
		previous = append(previous, pair.Index)
	}
	for _, pair := range p.next.Slice() {
		next = append(next, pair.Index)
	}
	return previous, next
}

// nextIndexToLoad returns the index extending the given direction, or false
// when that side is full or at the end of the list. Requires p.mu.
func (p *Preloader) nextIndexToLoad(direction int) (int, bool) {
	if p.current == nil {
		return 0, false
	}
	if direction == forward {
		if p.next.Len() >= MinimumPreloaded {
			return 0, false
		}
		last := p.current.Index
		if p.next.Len() > 0 {
			last = p.next.Back().Index
		}
		return last + 1, last+1 < len(p.Paths)
	}
	if p.previous.Len() >= MinimumPreloaded {
		return 0, false
	}
	first := p.current.Index
	if p.previous.Len() > 0 {
		first = p.previous.Front().Index
	}
	return first - 1, first > 0
}

// fill loads toward direction until MinimumPreloaded are loaded or the list
// ends. Loads made stale by a reset or a move are dropped.
func (p *Preloader) fill(ctx context.Context, direction int) error {
	for {
		p.mu.Lock()
		generation := p.generation
		index, ok := p.nextIndexToLoad(direction)
		p.mu.Unlock()
		if !ok {
			return nil
		}
		pair, err := p.load(ctx, index)
		if err != nil {
			return err
		}
		p.mu.Lock()
		if expected, ok := p.nextIndexToLoad(direction); generation == p.generation && ok && expected == index {
			if direction == forward {
				p.next.PushBack(pair)
			} else {
				p.previous.PushFront(pair)
			}
		}
		p.mu.Unlock()
	}
}

// LoadNextLightCurves preloads the light curves after the current one.
func (p *Preloader) LoadNextLightCurves(ctx context.Context) error {
	return p.fill(ctx, forward)
}

// LoadPreviousLightCurves preloads the light curves before the current one.
func (p *Preloader) LoadPreviousLightCurves(ctx context.Context) error {
	return p.fill(ctx, backward)
}

// LoadSurroundingLightCurves preloads both sides of the current light curve.
func (p *Preloader) LoadSurroundingLightCurves(ctx context.Context) error {
	if err := p.LoadNextLightCurves(ctx); err != nil {
		return err
	}
	return p.LoadPreviousLightCurves(ctx)
}

// refill starts a background fill of direction unless one is running. Requires p.mu.
func (p *Preloader) refill(direction int) {
	if p.filling[direction] {
		return
	}
	p.filling[direction] = true
	ctx, generation := p.ctx, p.generation
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := p.fill(ctx, direction)
		p.mu.Lock()
		if generation == p.generation {
			p.filling[direction] = false
		}
		p.mu.Unlock()
		if err != nil && ctx.Err() == nil {
			ctxlog.FromContext(ctx).Warn("Background preloading failed.", "error", err)
		}
	}()
}

// Increment moves to the next light curve. It reports false at the end of
// the list.
func (p *Preloader) Increment(ctx context.Context) (bool, error) {
	return p.move(ctx, forward)
}

// Decrement moves to the previous light curve. It reports false at the start
// of the list.
func (p *Preloader) Decrement(ctx context.Context) (bool, error) {
	return p.move(ctx, backward)
}

func (p *Preloader) move(ctx context.Context, direction int) (bool, error) {
	for {
		p.mu.Lock()
		if p.current == nil {
			p.mu.Unlock()
			return false, errors.New("no current light curve")
		}
		ahead, behind := p.next, p.previous
		target := p.current.Index + 1
		if direction == backward {
			ahead, behind = p.previous, p.next
			target = p.current.Index - 1
		}
		if target < 0 || target >= len(p.Paths) {
			p.mu.Unlock()
			return false, nil
		}
		if ahead.Len() > 0 {
			p.pushBehind(behind, direction)
			var pair IndexLightCurvePair
			if direction == forward {
				pair = ahead.PopFront()
			} else {
				pair = ahead.PopBack()
			}
			p.current = &pair
			p.refill(forward)
			p.refill(backward)
			p.mu.Unlock()
			return true, nil
		}
		generation, from := p.generation, p.current.Index
		p.mu.Unlock()

		pair, err := p.load(ctx, target)
		if err != nil {
			return false, err
		}

		p.mu.Lock()
		if generation == p.generation && from == p.current.Index && ahead.Len() == 0 {
			p.pushBehind(behind, direction)
			p.current = &pair
			p.refill(forward)
			p.refill(backward)
			p.mu.Unlock()
			return true, nil
		}
		// moved or preloaded meanwhile
		p.mu.Unlock()
	}
}

// pushBehind stores the current light curve on the side it is left on. Requires p.mu.
func (p *Preloader) pushBehind(behind *boundedDeque[IndexLightCurvePair], direction int) {
	if direction == forward {
		behind.PushBack(*p.current)
	} else {
		behind.PushFront(*p.current)
	}
}

// ResetToIndex drops everything preloaded, loads the light curve at index
// as current and refills both sides in the background.
func (p *Preloader) ResetToIndex(ctx context.Context, index int) error {
	if index < 0 || index >= len(p.Paths) {
		return errors.Errorf("index %d out of range of %d light curves", index, len(p.Paths))
	}
	p.mu.Lock()
	p.generation++
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.next.Clear()
	p.previous.Clear()
	p.filling = [2]bool{}
	p.mu.Unlock()

	if err := p.LoadLightCurveAtIndexAsCurrent(ctx, index); err != nil {
		return err
	}
	p.mu.Lock()
	p.refill(forward)
	p.refill(backward)
	p.mu.Unlock()
	return nil
}

// Close stops background loading and waits for it.
func (p *Preloader) Close() {
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
}
