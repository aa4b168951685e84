// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"log"
	"math"
	"time"

	"github.com/proio-org/go-proio"
)

// Player paces a recorded run by its frame timestamps so playback
// approximates the original acquisition timing. Timestamps are
// nanoseconds since the epoch.
type Player struct {
	Speed float64
}

// PlayStream copies events from input to output, sleeping between
// frames to reproduce the recorded inter-frame intervals scaled by
// Speed. A timestamp that jumps backward (a looped run) restarts the
// clock.
func (p *Player) PlayStream(input <-chan *proio.Event, output chan<- *proio.Event) {
	if p.Speed == 0.0 {
		p.Speed = 1.0
	}
	durationScale := 1.0 / p.Speed

	var start time.Time
	initStamp := uint64(math.MaxUint64)
	lastStamp := uint64(math.MaxUint64)

	for event := range input {
		frame, err := FrameFromEvent(event)
		if err != nil {
			log.Println(err)
			continue
		}

		if frame.Timestamp < lastStamp {
			start = time.Now()
			initStamp = frame.Timestamp
		} else {
			elapsed := time.Duration(durationScale * float64(frame.Timestamp-initStamp))
			time.Sleep(time.Until(start.Add(elapsed)))
		}
		lastStamp = frame.Timestamp

		output <- event
	}
}
