// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"log"

	"github.com/rditech/scope-live/model/scope"

	"github.com/proio-org/go-proio"
)

// Reprocessor replays the display pipeline over a recorded run with a
// fixed parameter set, so a run captured with one gate or reference
// can be re-rendered with another. Each processed event gains
// Integrated, Equalized, and Final entries alongside the raw frame.
type Reprocessor struct {
	Params Snapshot

	history []*scope.Frame
}

func (r *Reprocessor) Reprocess(input <-chan *proio.Event, output chan<- *proio.Event) {
	for event := range input {
		frame, err := FrameFromEvent(event)
		if err != nil {
			log.Println(err)
			output <- event
			continue
		}

		r.history = append(r.history, frame)
		if len(r.history) > MaxHistory {
			r.history = r.history[len(r.history)-MaxHistory:]
		}

		window := 1
		if r.Params.IntegrationEnabled {
			window = r.Params.IntegrationCount
		}
		if window > len(r.history) {
			window = len(r.history)
		}

		res, err := Process(r.history[len(r.history)-window:], r.Params)
		if err != nil {
			log.Println(err)
			output <- event
			continue
		}

		event.AddEntry("Integrated", res.Integrated)
		event.AddEntry("Equalized", res.Equalized)
		event.AddEntry("Final", res.Final)
		output <- event
	}
}
