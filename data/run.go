// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"errors"
	"time"

	"github.com/rditech/scope-live/model/scope"

	"github.com/proio-org/go-proio"
)

// RunDateFormat names run files by their start time.
const RunDateFormat = "2006_Jan2_15_04_05_UTC"

// RunName returns the file name for a run started at t.
func RunName(t time.Time) string {
	return t.UTC().Format(RunDateFormat) + ".proio"
}

// FrameToEvent wraps a frame in a proio event under the "Frame" tag.
func FrameToEvent(frame *scope.Frame) *proio.Event {
	event := proio.NewEvent()
	event.AddEntry("Frame", frame)
	return event
}

// FrameFromEvent extracts the first "Frame" entry of the event.
func FrameFromEvent(event *proio.Event) (*scope.Frame, error) {
	for _, entryId := range event.TaggedEntries("Frame") {
		frame, ok := event.GetEntry(entryId).(*scope.Frame)
		if !ok {
			return nil, errors.New("event entry tagged Frame is not a frame")
		}
		return frame, nil
	}
	return nil, errors.New("event carries no Frame entry")
}
