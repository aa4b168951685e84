// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"testing"

	"github.com/rditech/scope-live/model/scope"
)

func uniformFrame(depth uint32, w, h int, v uint64) *scope.Frame {
	f := &scope.Frame{
		Width:    uint32(w),
		Height:   uint32(h),
		Depth:    depth,
		Channels: 1,
		Pix:      make([]uint64, w*h),
	}
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Push(uniformFrame(8, 1, 1, uint64(i)))
	}

	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	if got := r.Latest().Pix[0]; got != 4 {
		t.Errorf("latest = %d, want 4", got)
	}

	frames := r.LastN(3)
	for i, want := range []uint64{2, 3, 4} {
		if frames[i].Pix[0] != want {
			t.Errorf("frames[%d] = %d, want %d", i, frames[i].Pix[0], want)
		}
	}
}

func TestRingLastNShorterThanHistory(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 4; i++ {
		r.Push(uniformFrame(8, 1, 1, uint64(i)))
	}

	frames := r.LastN(2)
	if len(frames) != 2 {
		t.Fatalf("len = %d, want 2", len(frames))
	}
	if frames[0].Pix[0] != 2 || frames[1].Pix[0] != 3 {
		t.Errorf("frames = %d,%d, want 2,3", frames[0].Pix[0], frames[1].Pix[0])
	}

	if got := r.LastN(100); len(got) != 4 {
		t.Errorf("oversized request returned %d frames, want 4", len(got))
	}
}

func TestRingEmpty(t *testing.T) {
	r := NewRing(0)
	if r.Latest() != nil {
		t.Error("latest on empty ring should be nil")
	}
	if r.LastN(5) != nil {
		t.Error("LastN on empty ring should be nil")
	}
	if len(r.buf) != MaxHistory {
		t.Errorf("default capacity = %d, want %d", len(r.buf), MaxHistory)
	}
}
