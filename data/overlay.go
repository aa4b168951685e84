// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
)

// Composite blends the grayscale static overlay under the equalized
// frame. The live signal lands in the red channel only; the overlay is
// replicated across all three channels, so overlaid structure reads as
// gray while signal reads as red. opacity is a percentage.
func Composite(equalized, overlay *scope.Frame, opacity int) (*scope.Frame, error) {
	if !equalized.SameShape(overlay) {
		return nil, &ConfigError{Reason: "static overlay shape does not match frame"}
	}
	if opacity < 0 {
		opacity = 0
	} else if opacity > 100 {
		opacity = 100
	}

	maxVal := equalized.MaxVal()
	alpha := float64(opacity) / 100
	invAlpha := 1 - alpha

	out := &scope.Frame{
		Width:     equalized.Width,
		Height:    equalized.Height,
		Depth:     equalized.Depth,
		Channels:  3,
		Timestamp: equalized.Timestamp,
		Pix:       make([]uint64, 3*len(equalized.Pix)),
	}
	for i, p := range equalized.Pix {
		over := alpha * float64(overlay.Pix[i])
		out.Pix[3*i] = saturate(invAlpha*float64(p)+over, maxVal)
		gb := saturate(over, maxVal)
		out.Pix[3*i+1] = gb
		out.Pix[3*i+2] = gb
	}
	return out, nil
}
