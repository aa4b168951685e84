// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
)

// SubtractDark removes the dark reference from img. A shape mismatch
// between the reference and the live frame is a ConfigError; the
// caller keeps the previous output rather than mixing geometries.
func SubtractDark(img, dark *scope.Frame, mode SubtractionMode) (*scope.Frame, error) {
	if !img.SameShape(dark) {
		return nil, &ConfigError{Reason: "dark reference shape does not match frame"}
	}

	out := &scope.Frame{
		Width:     img.Width,
		Height:    img.Height,
		Depth:     img.Depth,
		Channels:  img.Channels,
		Timestamp: img.Timestamp,
		Pix:       make([]uint64, len(img.Pix)),
	}
	switch mode {
	case AbsDiff:
		for i, p := range img.Pix {
			d := dark.Pix[i]
			if p >= d {
				out.Pix[i] = p - d
			} else {
				out.Pix[i] = d - p
			}
		}
	default:
		for i, p := range img.Pix {
			d := dark.Pix[i]
			if p > d {
				out.Pix[i] = p - d
			}
		}
	}
	return out, nil
}
