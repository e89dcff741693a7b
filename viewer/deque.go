package viewer

// boundedDeque is a double ended queue holding at most limit items. Pushing
// onto a full deque drops the item at the opposite end.
type boundedDeque[T any] struct {
	items []T
	head  int
	n     int
}

func newBoundedDeque[T any](limit int) *boundedDeque[T] {
	return &boundedDeque[T]{items: make([]T, limit)}
}

func (d *boundedDeque[T]) Len() int { return d.n }

func (d *boundedDeque[T]) at(i int) int { return (d.head + i) % len(d.items) }

// Front returns the first item. The deque must not be empty.
func (d *boundedDeque[T]) Front() T { return d.items[d.head] }

// Back returns the last item. The deque must not be empty.
func (d *boundedDeque[T]) Back() T { return d.items[d.at(d.n-1)] }

func (d *boundedDeque[T]) PushBack(v T) {
	if len(d.items) == 0 {
		return
	}
	if d.n == len(d.items) {
		d.PopFront()
	}
	d.items[d.at(d.n)] = v
	d.n++
}

func (d *boundedDeque[T]) PushFront(v T) {
	if len(d.items) == 0 {
		return
	}
	if d.n == len(d.items) {
		d.PopBack()
	}
	d.head = (d.head - 1 + len(d.items)) % len(d.items)
	d.items[d.head] = v
	d.n++
}

func (d *boundedDeque[T]) PopFront() T {
	var zero T
	v := d.items[d.head]
	d.items[d.head] = zero
	d.head = d.at(1)
	d.n--
	return v
}

func (d *boundedDeque[T]) PopBack() T {
	var zero T
	i := d.at(d.n - 1)
	v := d.items[i]
	d.items[i] = zero
	d.n--
	return v
}

func (d *boundedDeque[T]) Clear() {
	clear(d.items)
	d.head, d.n = 0, 0
}

// Slice copies the items from front to back.
func (d *boundedDeque[T]) Slice() []T {
	out := make([]T, d.n)
	for i := range out {
		out[i] = d.items[d.at(i)]
	}
	return out
}
