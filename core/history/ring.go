// Package history keeps the most recent telemetry samples in a fixed-size
// ring with oldest-first eviction.
package history

import (
	"sync"

	"github.com/kilianp07/hres/core/model"
)

// DefaultCapacity is the number of samples kept for charting.
const DefaultCapacity = 30

// Ring is a bounded, insertion-ordered buffer of samples. Appends come from
// a single writer; reads may happen concurrently.
type Ring struct {
	mu    sync.RWMutex
	buf   []model.Sample
	start int
	size  int
}

// NewRing returns a Ring holding at most capacity samples. A non-positive
// capacity falls back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]model.Sample, capacity)}
}

// Append stores s, evicting the oldest sample once the ring is full.
func (r *Ring) Append(s model.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := len(r.buf)
	if r.size < c {
		r.buf[(r.start+r.size)%c] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % c
}

// Samples returns a copy of the buffered samples, oldest first.
func (r *Ring) Samples() []model.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Sample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Latest returns the newest sample.
func (r *Ring) Latest() (model.Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.size == 0 {
		return model.Sample{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring) Cap() int { return len(r.buf) }

// Reset drops every sample.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.size = 0, 0
	for i := range r.buf {
		r.buf[i] = model.Sample{}
	}
}
