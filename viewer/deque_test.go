package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedDequeDropsOppositeEnd(t *testing.T) {
	d := newBoundedDeque[int](3)
	for i := 1; i <= 4; i++ {
		d.PushBack(i)
	}
	assert.Equal(t, []int{2, 3, 4}, d.Slice())

	d.PushFront(0)
	assert.Equal(t, []int{0, 2, 3}, d.Slice())
	assert.Equal(t, 0, d.Front())
	assert.Equal(t, 3, d.Back())

	assert.Equal(t, 3, d.PopBack())
	assert.Equal(t, 0, d.PopFront())
	assert.Equal(t, 1, d.Len())

	d.Clear()
	assert.Zero(t, d.Len())
	d.PushFront(7)
	assert.Equal(t, []int{7}, d.Slice())
}
