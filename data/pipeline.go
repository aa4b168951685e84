// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
)

// Result carries the three stages of one processing cycle. Integrated
// is the frame after integration and dark subtraction, Equalized after
// the gate, and Final after overlay compositing. Seq increments per
// published cycle.
type Result struct {
	Integrated *scope.Frame
	Equalized  *scope.Frame
	Final      *scope.Frame
	Seq        uint64
}

// Process runs one full pipeline cycle over the frame history with the
// given parameter snapshot. history is ordered oldest to newest. The
// same history and snapshot always produce the same result. A nil
// result with nil error means there is nothing to process yet.
func Process(history []*scope.Frame, params Snapshot) (*Result, error) {
	if len(history) == 0 {
		return nil, nil
	}

	integrated := history[len(history)-1]
	if params.IntegrationEnabled {
		integrated = Integrate(history, params.IntegrationCount)
	}

	if params.SubtractDark && params.Dark != nil {
		sub, err := SubtractDark(integrated, params.Dark, params.Mode)
		if err != nil {
			return nil, err
		}
		integrated = sub
	}

	equalized := ApplyGate(integrated, params.GateLow, params.GateHigh)

	final := equalized
	if params.OverlayEnabled && params.Static != nil {
		comp, err := Composite(equalized, params.Static, params.OverlayOpacity)
		if err != nil {
			return nil, err
		}
		final = comp
	}

	return &Result{Integrated: integrated, Equalized: equalized, Final: final}, nil
}
