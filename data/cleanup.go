// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/proio-org/go-proio"
)

// KeepOnlyRawFrames strips derived pipeline entries so a recorded run
// keeps only what cannot be recomputed.
func KeepOnlyRawFrames(event *proio.Event) {
	rawFrameIds := event.TaggedEntries("Frame")
	for _, frameId := range event.AllEntries() {
		isRaw := false
		for _, rawFrameId := range rawFrameIds {
			if frameId == rawFrameId {
				isRaw = true
				break
			}
		}
		if !isRaw {
			event.RemoveEntry(frameId)
		}
	}
}

// KeepOnlyFinalFrames keeps just the rendered output of a reprocessed
// run, for compact export.
func KeepOnlyFinalFrames(event *proio.Event) {
	finalIds := event.TaggedEntries("Final")
	for _, entryId := range event.AllEntries() {
		isFinal := false
		for _, finalId := range finalIds {
			if entryId == finalId {
				isFinal = true
				break
			}
		}
		if !isFinal {
			event.RemoveEntry(entryId)
		}
	}
}
