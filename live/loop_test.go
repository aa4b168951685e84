// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/model/scope"
)

type countingSource struct {
	captures uint64
	failEach uint64
}

func (s *countingSource) Capture() (*scope.Frame, error) {
	n := atomic.AddUint64(&s.captures, 1)
	if s.failEach != 0 && n%s.failEach == 0 {
		return nil, errors.New("transient fault")
	}
	return &scope.Frame{
		Width: 1, Height: 1, Depth: 8, Channels: 1,
		Timestamp: n,
		Pix:       []uint64{n % 256},
	}, nil
}

func TestAcquirerFillsRing(t *testing.T) {
	ring := data.NewRing(10)
	a := &Acquirer{
		Source: &countingSource{},
		Ring:   ring,
		Delay:  time.Millisecond,
	}
	a.Start()

	deadline := time.Now().Add(time.Second)
	for ring.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	a.Stop()

	if ring.Len() < 3 {
		t.Fatalf("ring holds %d frames after a second", ring.Len())
	}
}

func TestAcquirerStopsWithinOneCycle(t *testing.T) {
	src := &countingSource{}
	a := &Acquirer{
		Source: src,
		Ring:   data.NewRing(10),
		Delay:  time.Millisecond,
	}
	a.Start()
	time.Sleep(10 * time.Millisecond)
	a.Stop()

	after := atomic.LoadUint64(&src.captures)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadUint64(&src.captures); got != after {
		t.Errorf("captures kept running after Stop: %d -> %d", after, got)
	}

	// Stop is idempotent
	a.Stop()
}

func TestAcquirerSurvivesCaptureErrors(t *testing.T) {
	ring := data.NewRing(10)
	a := &Acquirer{
		Source: &countingSource{failEach: 2},
		Ring:   ring,
		Delay:  time.Millisecond,
	}
	a.Start()

	deadline := time.Now().Add(time.Second)
	for ring.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	a.Stop()

	if ring.Len() < 3 {
		t.Fatal("loop did not keep acquiring past capture failures")
	}
}

func TestProcessorPublishesResults(t *testing.T) {
	ring := data.NewRing(10)
	ring.Push(&scope.Frame{Width: 1, Height: 1, Depth: 8, Channels: 1, Pix: []uint64{125}})

	params := data.NewParamStore(0)
	params.Enqueue(data.Update{Param: data.ParamGateLow, Int: 50})
	params.Enqueue(data.Update{Param: data.ParamGateHigh, Int: 200})

	slot := NewResultSlot()
	p := &Processor{
		Ring:   ring,
		Params: params,
		Slot:   slot,
		Period: time.Millisecond,
		Depth:  8,
	}
	p.Start()
	defer p.Stop()

	select {
	case <-slot.Ready():
	case <-time.After(time.Second):
		t.Fatal("no result published within a second")
	}

	res := slot.Latest()
	if res.Equalized.Pix[0] != 127 {
		t.Errorf("equalized = %d, want 127", res.Equalized.Pix[0])
	}
	if res.Seq == 0 {
		t.Error("published result should carry a nonzero sequence")
	}
}

func TestProcessorRevertsOnBadReference(t *testing.T) {
	ring := data.NewRing(10)
	ring.Push(&scope.Frame{Width: 1, Height: 1, Depth: 8, Channels: 1, Pix: []uint64{100}})

	params := data.NewParamStore(0)
	slot := NewResultSlot()
	p := &Processor{
		Ring:   ring,
		Params: params,
		Slot:   slot,
		Period: time.Millisecond,
		Depth:  8,
	}
	p.Start()
	defer p.Stop()

	select {
	case <-slot.Ready():
	case <-time.After(time.Second):
		t.Fatal("no result published within a second")
	}

	// a dark frame of the wrong shape fails validation mid-stream; the
	// loop must fall back to the previous snapshot and keep publishing
	params.Enqueue(data.Update{Param: data.ParamSubtractDark, Bool: true})
	params.Enqueue(data.Update{
		Param: data.ParamDark,
		Frame: &scope.Frame{Width: 9, Height: 9, Depth: 8, Channels: 1, Pix: make([]uint64, 81)},
	})

	deadline := time.Now().Add(time.Second)
	var last *data.Result
	for time.Now().Before(deadline) {
		select {
		case <-slot.Ready():
			last = slot.Latest()
		case <-time.After(10 * time.Millisecond):
		}
		if last != nil && last.Seq > 2 {
			break
		}
	}
	if last == nil || last.Seq <= 2 {
		t.Fatal("processing stalled after the bad reference")
	}
	if last.Equalized.Pix[0] != 100 {
		t.Errorf("equalized = %d, want 100 (previous snapshot, full gate)", last.Equalized.Pix[0])
	}
	if p.Snapshot().SubtractDark {
		t.Error("invalid snapshot should not become current")
	}
}

func TestProcessorPauseResume(t *testing.T) {
	ring := data.NewRing(10)
	ring.Push(&scope.Frame{Width: 1, Height: 1, Depth: 8, Channels: 1, Pix: []uint64{1}})

	slot := NewResultSlot()
	p := &Processor{
		Ring:   ring,
		Params: data.NewParamStore(0),
		Slot:   slot,
		Period: time.Millisecond,
		Depth:  8,
	}
	p.Start()
	defer p.Stop()

	select {
	case <-slot.Ready():
	case <-time.After(time.Second):
		t.Fatal("no result published within a second")
	}

	if !p.Pause() {
		t.Fatal("pause rejected")
	}
	time.Sleep(10 * time.Millisecond)
	pausedSeq := slot.Latest().Seq
	time.Sleep(20 * time.Millisecond)
	if got := slot.Latest().Seq; got != pausedSeq {
		t.Errorf("results published while paused: %d -> %d", pausedSeq, got)
	}

	if !p.Resume() {
		t.Fatal("resume rejected")
	}
	deadline := time.Now().Add(time.Second)
	for slot.Latest().Seq == pausedSeq && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if slot.Latest().Seq == pausedSeq {
		t.Error("no results after resume")
	}
}

func TestShutdownOrderStopsProducerFirst(t *testing.T) {
	ring := data.NewRing(10)
	src := &countingSource{}
	a := &Acquirer{Source: src, Ring: ring, Delay: time.Millisecond}
	slot := NewResultSlot()
	p := &Processor{
		Ring:   ring,
		Params: data.NewParamStore(0),
		Slot:   slot,
		Period: time.Millisecond,
		Depth:  8,
	}

	a.Start()
	p.Start()

	select {
	case <-slot.Ready():
	case <-time.After(time.Second):
		t.Fatal("pipeline produced nothing")
	}

	// producer first, then consumer: the ring has no writer while the
	// processor finishes its last cycles
	a.Stop()
	captures := atomic.LoadUint64(&src.captures)
	p.Stop()

	if got := atomic.LoadUint64(&src.captures); got != captures {
		t.Errorf("source captured during processor shutdown: %d -> %d", captures, got)
	}
}
