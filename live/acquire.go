// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"log"
	"sync"
	"time"

	"github.com/rditech/scope-live/daq/camera"
	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/model/scope"
)

// FrameSource produces normalized frames on demand.
type FrameSource interface {
	Capture() (*scope.Frame, error)
}

// DefaultAcquireDelay is the pause between captures.
const DefaultAcquireDelay = 5 * time.Millisecond

// Acquirer runs the acquisition loop: capture a frame, push it into
// the history ring, pause, and poll for a stop request. A capture
// failure is logged and the next cycle retries; the loop never stops
// on its own.
type Acquirer struct {
	Source FrameSource
	Ring   *data.Ring
	Delay  time.Duration

	startOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Start launches the loop goroutine.
func (a *Acquirer) Start() {
	a.startOnce.Do(func() {
		a.stop = make(chan struct{})
		a.done = make(chan struct{})
		if a.Delay <= 0 {
			a.Delay = DefaultAcquireDelay
		}
		go a.run()
	})
}

func (a *Acquirer) run() {
	defer close(a.done)

	log.Println("starting acquisition loop")
	defer log.Println("stopped acquisition loop")

	for {
		frame, err := a.Source.Capture()
		switch err.(type) {
		case nil:
			a.Ring.Push(frame)
		case *camera.CaptureError:
			// transient, next cycle retries
			log.Println("capture:", err)
		default:
			log.Println("acquisition:", err)
		}

		time.Sleep(a.Delay)

		// the in-flight capture above always completes before the
		// stop request is honored
		select {
		case <-a.stop:
			return
		default:
		}
	}
}

// Stop requests shutdown and waits for the loop to finish its current
// cycle. Safe to call more than once.
func (a *Acquirer) Stop() {
	if a.stop == nil {
		return
	}
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	<-a.done
}
