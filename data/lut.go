// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
)

// lutDepthLimit is the largest bit depth for which the gate transfer
// function is materialized as a lookup table. Deeper streams apply the
// function per pixel.
const lutDepthLimit = 16

// gateBound converts a gate parameter to the pixel scale. The gate
// ceiling stands for full scale on streams whose range exceeds int.
func gateBound(v int, maxVal uint64) uint64 {
	if v >= gateCeil(maxVal) {
		return maxVal
	}
	return uint64(v)
}

// GateFunc returns the intensity transfer function for the given gate.
// Values below gateLow map to 0, values at or above gateHigh map to
// full scale, and the band in between is stretched linearly with
// truncation toward zero.
func GateFunc(gateLow, gateHigh int, maxVal uint64) func(uint64) uint64 {
	low := uint64(gateLow)
	high := gateBound(gateHigh, maxVal)
	span := float64(high - low)
	scale := float64(maxVal) / span
	return func(in uint64) uint64 {
		if in < low {
			return 0
		}
		if in >= high {
			return maxVal
		}
		return saturate(float64(in-low)*scale, maxVal)
	}
}

// BuildLUT materializes the gate transfer function over the full input
// range. O(maxVal) space, so callers guard with lutDepthLimit.
func BuildLUT(gateLow, gateHigh int, maxVal uint64) []uint64 {
	f := GateFunc(gateLow, gateHigh, maxVal)
	lut := make([]uint64, maxVal+1)
	for i := range lut {
		lut[i] = f(uint64(i))
	}
	return lut
}

// ApplyGate maps every pixel of img through the gate transfer function
// and returns the equalized frame.
func ApplyGate(img *scope.Frame, gateLow, gateHigh int) *scope.Frame {
	maxVal := img.MaxVal()
	out := &scope.Frame{
		Width:     img.Width,
		Height:    img.Height,
		Depth:     img.Depth,
		Channels:  img.Channels,
		Timestamp: img.Timestamp,
		Pix:       make([]uint64, len(img.Pix)),
	}

	if img.Depth <= lutDepthLimit {
		lut := BuildLUT(gateLow, gateHigh, maxVal)
		for i, p := range img.Pix {
			if p > maxVal {
				p = maxVal
			}
			out.Pix[i] = lut[p]
		}
		return out
	}

	f := GateFunc(gateLow, gateHigh, maxVal)
	for i, p := range img.Pix {
		out.Pix[i] = f(p)
	}
	return out
}
