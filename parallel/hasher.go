package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// Hasher fingerprints a fixed number of uint16 values that may be put from
// several goroutines in any order. The sum covers the values in index order.
type Hasher struct {
	mut    sync.Mutex
	values []uint16
	put    []bool
}

// NewUint16Hasher creates a hasher for n values.
func NewUint16Hasher(n int) *Hasher {
	return &Hasher{
		values: make([]uint16, n),
		put:    make([]bool, n),
	}
}

// MustPutUint16 stores value at position n. Putting a position twice panics.
func (h *Hasher) MustPutUint16(n int, value uint16) {
	h.mut.Lock()
	defer h.mut.Unlock()

	if h.put[n] {
		panic("duplicate write")
	}
	h.put[n] = true
	h.values[n] = value
}

// Sum hashes the values. Positions never put count as zero.
func (h *Hasher) Sum() (ret [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()

	buf := make([]byte, 2*len(h.values))
	for i, v := range h.values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return sha256.Sum256(buf)
}
