// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"sync/atomic"

	"github.com/rditech/scope-live/data"
)

// ResultSlot holds the most recent processing result. Publishing
// replaces the previous result atomically; consumers that fall behind
// see only the latest. Ready coalesces notifications so a slow
// consumer wakes at most once per publish it missed.
type ResultSlot struct {
	val   atomic.Value
	ready chan struct{}
}

func NewResultSlot() *ResultSlot {
	return &ResultSlot{ready: make(chan struct{}, 1)}
}

// Publish stores the result and signals Ready.
func (s *ResultSlot) Publish(res *data.Result) {
	s.val.Store(res)
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Latest returns the most recent result, or nil before the first
// publish.
func (s *ResultSlot) Latest() *data.Result {
	res, _ := s.val.Load().(*data.Result)
	return res
}

// Ready signals when a new result has been published since the last
// receive.
func (s *ResultSlot) Ready() <-chan struct{} {
	return s.ready
}
