// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

// Package camera defines the acquisition-backend boundary and adapts
// raw driver buffers into pipeline frames.
package camera

import (
	"fmt"
)

// RawImage is the unprocessed result of a single driver capture. Pix
// is channel-interleaved with ceil(depth/8) little-endian bytes per
// sample, as declared by the driver.
type RawImage struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// Driver is the boundary to the physical or virtual acquisition
// backend. TriggerCapture blocks until the backend has a frame ready;
// FetchImage returns the buffer for the most recent trigger.
type Driver interface {
	TriggerCapture() error
	FetchImage() (*RawImage, error)
	SetProperty(device, key, value string) error
	Close() error
}

// DriverError means the acquisition backend is unreachable. At startup
// this is fatal; the process must not run headless against a dead
// backend.
type DriverError struct {
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("camera backend unreachable: %v", e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// CaptureError is a single-cycle capture or metadata failure. The
// acquisition loop logs it and retries on the next cycle.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture failed: %v: %v", e.Reason, e.Err)
	}
	return "capture failed: " + e.Reason
}

func (e *CaptureError) Unwrap() error { return e.Err }
