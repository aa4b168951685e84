// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package camera

import (
	"encoding/binary"
	"time"

	"github.com/rditech/scope-live/model/scope"
)

// Rec.601 luma weights, used when the driver delivers 3 or more
// channels (alpha and extras are ignored).
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Source adapts a Driver into single-channel grayscale frames at a
// fixed output bit depth. The intensity scale factor is computed once
// from the declared input depth, never from pixel content, so the
// mapping is stable across frames.
type Source struct {
	driver      Driver
	outputDepth uint32
	scale       float64
	inputBytes  int
}

// NewSource computes the fixed scale factor outputMax/inputMax from
// the declared depths. Depths outside {8, 16, 32, 64} are rounded up
// to the next supported output width.
func NewSource(d Driver, inputDepth, outputDepth uint32) *Source {
	outputDepth = normalizeDepth(outputDepth)

	inMax := float64(maxForDepth(inputDepth))
	outMax := float64(maxForDepth(outputDepth))

	return &Source{
		driver:      d,
		outputDepth: outputDepth,
		scale:       outMax / inMax,
		inputBytes:  int(inputDepth+7) / 8,
	}
}

// Depth returns the configured output bit depth.
func (s *Source) Depth() uint32 { return s.outputDepth }

// Driver exposes the underlying backend for property pushes.
func (s *Source) Driver() Driver { return s.driver }

// Capture triggers one hardware capture and returns the normalized
// grayscale frame. All failures are reported as *CaptureError and are
// safe to retry on the next cycle.
func (s *Source) Capture() (*scope.Frame, error) {
	if err := s.driver.TriggerCapture(); err != nil {
		return nil, &CaptureError{Reason: "trigger", Err: err}
	}

	raw, err := s.driver.FetchImage()
	if err != nil {
		return nil, &CaptureError{Reason: "fetch", Err: err}
	}
	if raw == nil || raw.Pix == nil {
		return nil, &CaptureError{Reason: "no pixel data"}
	}
	if raw.Width <= 0 || raw.Height <= 0 || raw.Channels <= 0 {
		return nil, &CaptureError{Reason: "bad image metadata"}
	}

	nPix := raw.Width * raw.Height
	sampleBytes := s.inputBytes
	if len(raw.Pix) < nPix*raw.Channels*sampleBytes {
		return nil, &CaptureError{Reason: "short pixel buffer"}
	}

	frame := &scope.Frame{
		Width:     uint32(raw.Width),
		Height:    uint32(raw.Height),
		Depth:     s.outputDepth,
		Channels:  1,
		Timestamp: uint64(time.Now().UnixNano()),
		Pix:       make([]uint64, nPix),
	}

	outMax := frame.MaxVal()
	stride := raw.Channels * sampleBytes
	for i := 0; i < nPix; i++ {
		off := i * stride
		var v float64
		if raw.Channels >= 3 {
			r := float64(readSample(raw.Pix[off:], sampleBytes))
			g := float64(readSample(raw.Pix[off+sampleBytes:], sampleBytes))
			b := float64(readSample(raw.Pix[off+2*sampleBytes:], sampleBytes))
			v = lumaR*r + lumaG*g + lumaB*b
		} else {
			// average the available channels
			var sum float64
			for c := 0; c < raw.Channels; c++ {
				sum += float64(readSample(raw.Pix[off+c*sampleBytes:], sampleBytes))
			}
			v = sum / float64(raw.Channels)
		}

		v *= s.scale
		if v < 0 {
			v = 0
		}
		u := uint64(v) // truncate toward zero
		if v >= float64(outMax) {
			u = outMax
		}
		frame.Pix[i] = u
	}

	return frame, nil
}

func readSample(buf []byte, n int) uint64 {
	switch n {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		return binary.LittleEndian.Uint64(buf)
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func normalizeDepth(depth uint32) uint32 {
	switch {
	case depth <= 8:
		return 8
	case depth <= 16:
		return 16
	case depth <= 32:
		return 32
	default:
		return 64
	}
}

func maxForDepth(depth uint32) uint64 {
	if depth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << depth) - 1
}
