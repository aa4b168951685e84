// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"testing"

	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/model/scope"
)

func TestResultSlotLatest(t *testing.T) {
	s := NewResultSlot()
	if s.Latest() != nil {
		t.Error("latest should be nil before the first publish")
	}

	for i := uint64(1); i <= 3; i++ {
		s.Publish(&data.Result{Seq: i})
	}
	if got := s.Latest(); got.Seq != 3 {
		t.Errorf("seq = %d, want 3", got.Seq)
	}
}

func TestResultSlotReadyCoalesces(t *testing.T) {
	s := NewResultSlot()
	s.Publish(&data.Result{Seq: 1})
	s.Publish(&data.Result{Seq: 2})

	select {
	case <-s.Ready():
	default:
		t.Fatal("ready should fire after publish")
	}
	select {
	case <-s.Ready():
		t.Fatal("ready should coalesce multiple publishes into one signal")
	default:
	}
}

func TestFrameImageGray(t *testing.T) {
	f := &scope.Frame{Width: 2, Height: 1, Depth: 8, Channels: 1, Pix: []uint64{0, 255}}
	img := FrameImage(f)
	bounds := img.Bounds()
	if bounds.Dx() != 2 || bounds.Dy() != 1 {
		t.Fatalf("bounds = %v", bounds)
	}
	r0, _, _, _ := img.At(0, 0).RGBA()
	r1, _, _, _ := img.At(1, 0).RGBA()
	if r0 != 0 || r1 != 0xffff {
		t.Errorf("pixels = %v,%v", r0, r1)
	}

	buf, err := EncodeFramePng(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 {
		t.Error("empty png")
	}
}

func TestFrameImageScales16Bit(t *testing.T) {
	f := &scope.Frame{Width: 1, Height: 1, Depth: 16, Channels: 1, Pix: []uint64{65535}}
	img := FrameImage(f)
	r, _, _, _ := img.At(0, 0).RGBA()
	if r != 0xffff {
		t.Errorf("full-scale 16-bit pixel = %v, want 0xffff", r)
	}
}
