// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
)

// Integrate blends the newest count frames of history into one frame.
// history is ordered oldest to newest. The blend walks newest-first so
// the most recent frame carries the largest weight; frames whose shape
// differs from the newest are skipped. The newest frame is returned
// verbatim when the effective window is a single frame.
func Integrate(history []*scope.Frame, count int) *scope.Frame {
	if len(history) == 0 {
		return nil
	}
	n := count
	if n > len(history) {
		n = len(history)
	}
	newest := history[len(history)-1]
	if n <= 1 {
		return newest
	}

	maxVal := newest.MaxVal()
	acc := make([]float64, len(newest.Pix))
	for i := 0; i < n; i++ {
		frame := history[len(history)-1-i]
		if !frame.SameShape(newest) {
			continue
		}
		accW := float64(i) / float64(n)
		frameW := float64(n-i) / float64(n)
		for j, p := range frame.Pix {
			acc[j] = acc[j]*accW + float64(p)*frameW
		}
	}

	out := &scope.Frame{
		Width:     newest.Width,
		Height:    newest.Height,
		Depth:     newest.Depth,
		Channels:  newest.Channels,
		Timestamp: newest.Timestamp,
		Pix:       make([]uint64, len(acc)),
	}
	for j, v := range acc {
		out.Pix[j] = saturate(v, maxVal)
	}
	return out
}

// saturate truncates toward zero and clamps to [0, maxVal].
func saturate(v float64, maxVal uint64) uint64 {
	if v <= 0 {
		return 0
	}
	if v >= float64(maxVal) {
		return maxVal
	}
	return uint64(v)
}
