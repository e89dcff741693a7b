package database

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/parallel"
)

// Batch is a group of examples, one row per example in every field.
type Batch struct {
	Paths     []string
	Fluxes    []*mat.Dense
	Labels    [][]float64
	Auxiliary [][]float64
}

// Len is the number of examples in the batch.
func (b *Batch) Len() int {
	return len(b.Fluxes)
}

func (b *Batch) add(e Example) {
	b.Paths = append(b.Paths, e.Path)
	b.Fluxes = append(b.Fluxes, e.Fluxes)
	b.Labels = append(b.Labels, e.Label)
	if e.Auxiliary != nil {
		b.Auxiliary = append(b.Auxiliary, e.Auxiliary)
	}
}

// Stream is an endless sequence of batches taking examples from each source
// collection in turn. Next must not be called concurrently.
type Stream struct {
	name      string
	sources   []chan Example
	next      int
	batchSize int

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	waitOnce sync.Once
	err      error
}

func (d *StandardAndInjected) generateStream(ctx context.Context, name string, s *seeds,
	standard []datasets.Collection, injectee datasets.Collection, injectables []datasets.Collection) (*Stream, error) {

	if len(standard)+len(injectables) == 0 {
		return nil, errors.New("no collections")
	}
	if len(injectables) > 0 && injectee == nil {
		return nil, errors.New("injectable collections need an injectee collection")
	}
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	st := &Stream{
		name:      name,
		batchSize: d.batchSize(),
		ctx:       ctx,
		cancel:    cancel,
		group:     group,
	}
	log := ctxlog.FromContext(ctx).With("stream", name)

	for _, c := range standard {
		c := c
		paths := d.pathStream(ctx, group, c, s.rand())
		st.sources = append(st.sources, d.mapExamples(ctx, group, c, s, func(rng *rand.Rand) (string, Example, error) {
			path, err := receive(ctx, paths)
			if err != nil {
				return "", Example{}, err
			}
			e, err := d.PreprocessStandardLightCurve(c, path, false, rng)
			return path, e, err
		}))
	}
	for _, c := range injectables {
		c := c
		injecteePaths := d.pathStream(ctx, group, injectee, s.rand())
		injectablePaths := d.pathStream(ctx, group, c, s.rand())
		st.sources = append(st.sources, d.mapExamples(ctx, group, c, s, func(rng *rand.Rand) (string, Example, error) {
			injecteePath, err := receive(ctx, injecteePaths)
			if err != nil {
				return "", Example{}, err
			}
			injectablePath, err := receive(ctx, injectablePaths)
			if err != nil {
				return "", Example{}, err
			}
			e, err := d.PreprocessInjectedLightCurve(injectee, c, injecteePath, injectablePath, rng)
			return injecteePath + " <- " + injectablePath, e, err
		}))
	}
	log.Debug("Stream started.", "sources", len(st.sources), "batch_size", st.batchSize)
	return st, nil
}

func receive(ctx context.Context, paths <-chan string) (string, error) {
	select {
	case p := <-paths:
		return p, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// pathStream repeats the paths of c forever through a shuffle buffer.
func (d *StandardAndInjected) pathStream(ctx context.Context, group *errgroup.Group, c datasets.Collection, rng *rand.Rand) <-chan string {
	out := make(chan string)
	group.Go(func() error {
		buffer := newShuffleBuffer[string](d.shuffleBufferSize(), rng)
		for {
			paths, err := c.Paths(ctx)
			if err != nil {
				return errors.Wrapf(err, "paths of %T", c)
			}
			if len(paths) == 0 {
				return errors.Wrapf(ErrNoPaths, "%T", c)
			}
			for _, p := range paths {
				p, ok := buffer.push(p)
				if !ok {
					continue
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})
	return out
}

// mapExamples runs the per-collection workers. A worker skips examples that
// fail to load; the collection fails after MaxConsecutiveFailures in a row.
func (d *StandardAndInjected) mapExamples(ctx context.Context, group *errgroup.Group, c datasets.Collection, s *seeds,
	load func(rng *rand.Rand) (string, Example, error)) chan Example {

	out := make(chan Example, d.workers())
	var mu sync.Mutex
	failures := 0
	log := ctxlog.FromContext(ctx)
	for w := 0; w < d.workers(); w++ {
		rng := s.rand()
		group.Go(func() error {
			for {
				path, e, err := load(rng)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err != nil {
					mu.Lock()
					failures++
					n := failures
					mu.Unlock()
					log.Warn("Skipping light curve.", "collection", collectionName(c), "path", path, "error", err)
					if n >= MaxConsecutiveFailures {
						return errors.Wrapf(err, "%d consecutive failures in %s", n, collectionName(c))
					}
					continue
				}
				mu.Lock()
				failures = 0
				mu.Unlock()
				select {
				case out <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}
	return out
}

func collectionName(c datasets.Collection) string {
	return fmt.Sprintf("%T", c)
}

// Next returns the next batch. Once the stream fails every call returns the
// same error.
func (s *Stream) Next(ctx context.Context) (Batch, error) {
	var b Batch
	for b.Len() < s.batchSize {
		select {
		case e := <-s.sources[s.next]:
			b.add(e)
			s.next = (s.next + 1) % len(s.sources)
		case <-s.ctx.Done():
			return Batch{}, s.wait()
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		}
	}
	return b, nil
}

func (s *Stream) wait() error {
	s.waitOnce.Do(func() {
		s.err = s.group.Wait()
		if s.err == nil {
			s.err = errors.Errorf("%s stream closed", s.name)
		}
	})
	return s.err
}

// Close stops the workers and waits for them to exit.
func (s *Stream) Close() error {
	s.cancel()
	err := s.wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// InferenceStream is a single pass over the inference collections.
type InferenceStream struct {
	examples <-chan Example
	done     chan struct{}
	cancel   context.CancelFunc
	err      error
}

// GenerateInferenceDataset starts a single, unshuffled pass over the
// inference collections with evaluation mode preprocessing. Examples come out
// in completion order with their Path set.
func (d *StandardAndInjected) GenerateInferenceDataset(ctx context.Context) *InferenceStream {
	ctx, cancel := context.WithCancel(ctx)
	examples := make(chan Example, d.workers())
	st := &InferenceStream{examples: examples, done: make(chan struct{}), cancel: cancel}
	log := ctxlog.FromContext(ctx)
	go func() {
		defer close(st.done)
		defer close(examples)
		for _, c := range d.InferenceCollections {
			paths, err := c.Paths(ctx)
			if err != nil {
				st.err = errors.Wrapf(err, "paths of %s", collectionName(c))
				return
			}
			parallel.ForEach(len(paths), d.workers(), func(i int) {
				if ctx.Err() != nil {
					return
				}
				e, err := d.PreprocessStandardLightCurve(c, paths[i], true, nil)
				if err != nil {
					log.Warn("Skipping light curve.", "path", paths[i], "error", err)
					return
				}
				select {
				case examples <- e:
				case <-ctx.Done():
				}
			})
			if ctx.Err() != nil {
				st.err = ctx.Err()
				return
			}
		}
	}()
	return st
}

// Next returns the next example, or io.EOF after the last one.
func (s *InferenceStream) Next(ctx context.Context) (Example, error) {
	select {
	case e, ok := <-s.examples:
		if ok {
			return e, nil
		}
		<-s.done
		if s.err != nil {
			return Example{}, s.err
		}
		return Example{}, io.EOF
	case <-ctx.Done():
		return Example{}, ctx.Err()
	}
}

// NextBatch collects up to size examples. The final batch may be short; an
// empty batch comes with io.EOF.
func (s *InferenceStream) NextBatch(ctx context.Context, size int) (Batch, error) {
	var b Batch
	for b.Len() < size {
		e, err := s.Next(ctx)
		if err == io.EOF && b.Len() > 0 {
			return b, nil
		}
		if err != nil {
			return Batch{}, err
		}
		b.add(e)
	}
	return b, nil
}

// Close abandons the pass.
func (s *InferenceStream) Close() error {
	s.cancel()
	for range s.examples {
	}
	<-s.done
	return nil
}
