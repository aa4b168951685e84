// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Simulator is a deterministic synthetic acquisition backend used for
// development and tests when no camera hardware is attached. It
// produces 8-bit RGBA buffers like the OpenCV grabber it stands in
// for.
type Simulator struct {
	mu       sync.Mutex
	width    int
	height   int
	pattern  string
	value    uint8
	exposure time.Duration
	seq      uint64
	pending  bool
	closed   bool
}

// NewSimulator returns a simulator producing uniform mid-gray frames.
func NewSimulator(width, height int) *Simulator {
	return &Simulator{
		width:   width,
		height:  height,
		pattern: "uniform",
		value:   128,
	}
}

func (s *Simulator) TriggerCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &DriverError{Err: fmt.Errorf("simulator closed")}
	}
	if s.exposure > 0 {
		time.Sleep(s.exposure)
	}
	s.seq++
	s.pending = true
	return nil
}

func (s *Simulator) FetchImage() (*RawImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("simulator closed")
	}
	if !s.pending {
		return nil, fmt.Errorf("no capture pending")
	}
	s.pending = false

	pix := make([]byte, s.width*s.height*4)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			var v uint8
			switch s.pattern {
			case "gradient":
				v = uint8(x * 255 / max(s.width-1, 1))
			case "sequence":
				// whole frame tracks the capture count, for tests
				// that need distinguishable frames
				v = uint8(s.seq)
			default:
				v = s.value
			}
			off := (y*s.width + x) * 4
			pix[off] = v
			pix[off+1] = v
			pix[off+2] = v
			pix[off+3] = 255
		}
	}

	return &RawImage{Pix: pix, Width: s.width, Height: s.height, Channels: 4}, nil
}

// SetProperty mirrors the device/property surface of the real backend.
// Recognized properties: sim/Pattern (uniform|gradient|sequence),
// sim/Value (0-255), sim/Exposure (milliseconds).
func (s *Simulator) SetProperty(device, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case "Pattern":
		switch value {
		case "uniform", "gradient", "sequence":
			s.pattern = value
		default:
			return fmt.Errorf("unknown pattern %q", value)
		}
	case "Value":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 || v > 255 {
			return fmt.Errorf("bad value %q", value)
		}
		s.value = uint8(v)
	case "Exposure":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return fmt.Errorf("bad exposure %q", value)
		}
		s.exposure = time.Duration(ms) * time.Millisecond
	default:
		return fmt.Errorf("unknown property %v/%v", device, key)
	}
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
