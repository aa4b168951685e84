// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"sync"

	"github.com/rditech/scope-live/model/scope"
)

// MaxHistory is the default frame history bound, and the upper limit
// for the integration window.
const MaxHistory = 50

// Ring is a bounded FIFO history of the most recent frames. The
// acquisition loop is the only writer and the processing loop the only
// reader; reads copy the index range so a reader never observes a
// buffer mutated mid-read.
type Ring struct {
	mu    sync.Mutex
	buf   []*scope.Frame
	start int
	n     int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = MaxHistory
	}
	return &Ring{buf: make([]*scope.Frame, capacity)}
}

// Push appends a frame, evicting the oldest when full. O(1).
func (r *Ring) Push(f *scope.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = f
		r.n++
		return
	}
	r.buf[r.start] = f
	r.start = (r.start + 1) % len(r.buf)
}

// Latest returns the most recently pushed frame, or nil when empty.
func (r *Ring) Latest() *scope.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n == 0 {
		return nil
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)]
}

// LastN returns up to k frames ordered oldest to newest. The returned
// slice is a fresh copy of the index range.
func (r *Ring) LastN(k int) []*scope.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if k > r.n {
		k = r.n
	}
	if k <= 0 {
		return nil
	}

	out := make([]*scope.Frame, k)
	first := r.n - k
	for i := 0; i < k; i++ {
		out[i] = r.buf[(r.start+first+i)%len(r.buf)]
	}
	return out
}

// Len returns the current number of buffered frames.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
