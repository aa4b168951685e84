// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rditech/scope-live/model/scope"
)

// ConfigError reports an invalid parameter or a reference image whose
// shape does not match the live stream. The pipeline keeps running on
// the previous valid snapshot when one of these surfaces mid-stream.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

// SubtractionMode selects how the dark reference is removed.
type SubtractionMode int

const (
	// Subtract clamps at zero instead of wrapping.
	Subtract SubtractionMode = iota
	// AbsDiff takes the absolute pixel difference.
	AbsDiff
)

func (m SubtractionMode) String() string {
	if m == AbsDiff {
		return "absdiff"
	}
	return "subtract"
}

func ParseSubtractionMode(s string) (SubtractionMode, error) {
	switch strings.ToLower(s) {
	case "subtract":
		return Subtract, nil
	case "absdiff":
		return AbsDiff, nil
	}
	return Subtract, &ConfigError{Reason: "unknown subtraction mode " + s}
}

// Snapshot is the immutable parameter set consumed by one processing
// cycle. A cycle sees either the previous snapshot or a fully merged
// new one, never a partial update.
type Snapshot struct {
	Dark               *scope.Frame
	Static             *scope.Frame
	SubtractDark       bool
	Mode               SubtractionMode
	OverlayEnabled     bool
	OverlayOpacity     int
	IntegrationEnabled bool
	IntegrationCount   int
	GateLow            int
	GateHigh           int
}

// gateCeil is the largest usable gate parameter for a stream with the
// given full-scale value. Streams deeper than the int range carry the
// ceiling as a stand-in for full scale; gateBound maps it back.
func gateCeil(maxVal uint64) int {
	if maxVal >= uint64(1)<<62 {
		return int(uint64(1) << 62)
	}
	return int(maxVal)
}

// DefaultSnapshot opens the gate fully for the given bit depth.
func DefaultSnapshot(depth uint32) Snapshot {
	f := scope.Frame{Depth: depth}
	high := gateCeil(f.MaxVal())
	if high < 1 {
		high = 1
	}
	return Snapshot{
		OverlayOpacity:   50,
		IntegrationCount: 1,
		GateLow:          0,
		GateHigh:         high,
	}
}

// Param enumerates every mutable pipeline parameter. Unknown names are
// rejected at the control boundary instead of silently accepted.
type Param int

const (
	ParamDark Param = iota
	ParamStatic
	ParamSubtractDark
	ParamSubtractionMode
	ParamOverlayEnabled
	ParamOverlayOpacity
	ParamIntegrationEnabled
	ParamIntegrationCount
	ParamGateLow
	ParamGateHigh
)

// Update is one tagged parameter change. Only the field matching the
// Param tag is meaningful.
type Update struct {
	Param Param
	Frame *scope.Frame
	Bool  bool
	Int   int
	Mode  SubtractionMode
}

// ParseUpdate converts a (name, value) pair from the control surface
// into a typed update. The frame-valued parameters (dark, static) are
// set through the capture actions, not through string values.
func ParseUpdate(name, value string) (Update, error) {
	parseBool := func(p Param) (Update, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Update{}, &ConfigError{Reason: name + ": " + err.Error()}
		}
		return Update{Param: p, Bool: b}, nil
	}
	parseInt := func(p Param) (Update, error) {
		// scale widgets hand over floats; truncate like the rest of
		// the pipeline
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Update{}, &ConfigError{Reason: name + ": " + err.Error()}
		}
		return Update{Param: p, Int: int(f)}, nil
	}

	switch name {
	case "subtractDark":
		return parseBool(ParamSubtractDark)
	case "overlayEnabled":
		return parseBool(ParamOverlayEnabled)
	case "integrationEnabled":
		return parseBool(ParamIntegrationEnabled)
	case "overlayOpacity":
		return parseInt(ParamOverlayOpacity)
	case "integrationCount":
		return parseInt(ParamIntegrationCount)
	case "gateLow":
		return parseInt(ParamGateLow)
	case "gateHigh":
		return parseInt(ParamGateHigh)
	case "subtractionMode":
		mode, err := ParseSubtractionMode(value)
		if err != nil {
			return Update{}, err
		}
		return Update{Param: ParamSubtractionMode, Mode: mode}, nil
	case "dark", "static":
		return Update{}, &ConfigError{Reason: name + " is set via its capture action"}
	}
	return Update{}, &ConfigError{Reason: "unknown parameter " + name}
}

// DefaultQueueDepth bounds the pending-update queue, matching the
// bound on the acquisition and processing control queues.
const DefaultQueueDepth = 32

// ParamStore holds the pending parameter updates between processing
// cycles. Any goroutine may enqueue; only the processing loop drains.
type ParamStore struct {
	updates chan Update
	dropped uint64
}

func NewParamStore(depth int) *ParamStore {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &ParamStore{updates: make(chan Update, depth)}
}

// Enqueue never blocks. When the queue is saturated the update is
// dropped and false is returned; only the latest value before the next
// drain matters, so the caller just logs and moves on.
func (s *ParamStore) Enqueue(u Update) bool {
	select {
	case s.updates <- u:
		return true
	default:
		atomic.AddUint64(&s.dropped, 1)
		return false
	}
}

// Dropped reports how many updates were discarded on saturation.
func (s *ParamStore) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// DrainAndApply merges all queued updates into cur in enqueue order
// (last write per parameter wins) and validates the interdependent
// fields. maxVal is the full-scale pixel value of the live stream.
func (s *ParamStore) DrainAndApply(cur Snapshot, maxVal uint64) Snapshot {
	next := cur
	for {
		select {
		case u := <-s.updates:
			next = apply(next, u)
		default:
			return validate(next, maxVal)
		}
	}
}

func apply(snap Snapshot, u Update) Snapshot {
	switch u.Param {
	case ParamDark:
		snap.Dark = u.Frame
	case ParamStatic:
		snap.Static = u.Frame
	case ParamSubtractDark:
		snap.SubtractDark = u.Bool
	case ParamSubtractionMode:
		snap.Mode = u.Mode
	case ParamOverlayEnabled:
		snap.OverlayEnabled = u.Bool
	case ParamOverlayOpacity:
		snap.OverlayOpacity = u.Int
	case ParamIntegrationEnabled:
		snap.IntegrationEnabled = u.Bool
	case ParamIntegrationCount:
		snap.IntegrationCount = u.Int
	case ParamGateLow:
		snap.GateLow = u.Int
	case ParamGateHigh:
		snap.GateHigh = u.Int
	}
	return snap
}

func validate(snap Snapshot, maxVal uint64) Snapshot {
	if snap.OverlayOpacity < 0 {
		snap.OverlayOpacity = 0
	} else if snap.OverlayOpacity > 100 {
		snap.OverlayOpacity = 100
	}

	if snap.IntegrationCount < 1 {
		snap.IntegrationCount = 1
	} else if snap.IntegrationCount > MaxHistory {
		snap.IntegrationCount = MaxHistory
	}

	high := gateCeil(maxVal)
	if snap.GateLow < 0 {
		snap.GateLow = 0
	}
	if snap.GateLow > high-1 {
		snap.GateLow = high - 1
	}
	if snap.GateHigh > high {
		snap.GateHigh = high
	}
	// keep the gate open: low strictly below high
	if snap.GateLow >= snap.GateHigh {
		snap.GateHigh = snap.GateLow + 1
	}

	return snap
}
