// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"log"
	"sync"
	"time"

	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/model/scope"
)

// DefaultProcessPeriod is the processing cycle tick.
const DefaultProcessPeriod = 20 * time.Millisecond

// Processor runs the processing loop. Each cycle drains the pending
// parameter updates, snapshots the frame history, runs the pipeline,
// and publishes the result. A cycle that fails parameter validation
// falls back to the previous valid snapshot so the display keeps
// updating with the last good configuration.
type Processor struct {
	Ring   *data.Ring
	Params *data.ParamStore
	Slot   *ResultSlot
	Period time.Duration

	// Depth is the bit depth of the live stream, used to bound the
	// gate parameters.
	Depth uint32

	startOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
	ctrl      chan bool

	mu   sync.Mutex
	snap data.Snapshot
	seq  uint64
}

// Start launches the loop goroutine.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		p.ctrl = make(chan bool, data.DefaultQueueDepth)
		if p.Period <= 0 {
			p.Period = DefaultProcessPeriod
		}
		p.mu.Lock()
		p.snap = data.DefaultSnapshot(p.Depth)
		p.mu.Unlock()
		go p.run()
	})
}

func (p *Processor) run() {
	defer close(p.done)

	log.Println("starting processing loop")
	defer log.Println("stopped processing loop")

	maxVal := (&scope.Frame{Depth: p.Depth}).MaxVal()
	ticker := time.NewTicker(p.Period)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-p.stop:
			return
		case pause := <-p.ctrl:
			paused = pause
		case <-ticker.C:
			if paused {
				continue
			}
			p.cycle(maxVal)
		}
	}
}

func (p *Processor) cycle(maxVal uint64) {
	p.mu.Lock()
	prev := p.snap
	p.mu.Unlock()

	next := p.Params.DrainAndApply(prev, maxVal)

	res, err := p.process(next)
	if err != nil {
		// revert to the previous valid snapshot for this and later
		// cycles
		log.Println("processing:", err)
		next = prev
		res, err = p.process(prev)
		if err != nil {
			log.Println("processing with previous snapshot:", err)
			return
		}
	}

	p.mu.Lock()
	p.snap = next
	if res != nil {
		p.seq++
		res.Seq = p.seq
	}
	p.mu.Unlock()

	if res != nil {
		p.Slot.Publish(res)
	}
}

func (p *Processor) process(snap data.Snapshot) (*data.Result, error) {
	window := 1
	if snap.IntegrationEnabled {
		window = snap.IntegrationCount
	}
	return data.Process(p.Ring.LastN(window), snap)
}

// Snapshot returns the parameter set of the most recent cycle.
func (p *Processor) Snapshot() data.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Pause suspends processing without stopping the loop. The request is
// dropped if the control queue is saturated.
func (p *Processor) Pause() bool {
	select {
	case p.ctrl <- true:
		return true
	default:
		return false
	}
}

// Resume reverses Pause.
func (p *Processor) Resume() bool {
	select {
	case p.ctrl <- false:
		return true
	default:
		return false
	}
}

// Stop terminates the loop and waits for it to exit. The acquisition
// loop feeding the ring should be stopped first. Safe to call more
// than once.
func (p *Processor) Stop() {
	if p.stop == nil {
		return
	}
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	<-p.done
}
