package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasherIsOrderIndependent(t *testing.T) {
	a := NewUint16Hasher(100)
	for n := 0; n < 100; n++ {
		a.MustPutUint16(n, uint16(n))
	}
	b := NewUint16Hasher(100)
	ForEach(100, 8, func(n int) {
		b.MustPutUint16(99-n, uint16(99-n))
	})
	assert.Equal(t, a.Sum(), b.Sum())

	c := NewUint16Hasher(100)
	c.MustPutUint16(5, 1)
	assert.NotEqual(t, a.Sum(), c.Sum())
	assert.Panics(t, func() { c.MustPutUint16(5, 2) })
}
