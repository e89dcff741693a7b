package database

import "math/rand/v2"

// shuffleBuffer holds up to size items. Once full, each push emits a
// uniformly chosen buffered item and takes its slot.
type shuffleBuffer[T any] struct {
	items []T
	size  int
	rng   *rand.Rand
}

func newShuffleBuffer[T any](size int, rng *rand.Rand) *shuffleBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &shuffleBuffer[T]{items: make([]T, 0, min(size, 1<<16)), size: size, rng: rng}
}

func (b *shuffleBuffer[T]) push(item T) (out T, ok bool) {
	if len(b.items) < b.size {
		b.items = append(b.items, item)
		return out, false
	}
	i := b.rng.IntN(len(b.items))
	out, b.items[i] = b.items[i], item
	return out, true
}
