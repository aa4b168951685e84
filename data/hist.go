// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/scope-live/model/scope"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/stat"
)

// Hist bins the pixel intensities of f. With bins <= 0 the binning
// defaults to one bin per level for 8-bit frames and 256 bins
// otherwise.
func Hist(f *scope.Frame, bins int) *hbook.H1D {
	maxVal := f.MaxVal()
	if bins <= 0 {
		if f.Depth <= 8 {
			bins = int(maxVal) + 1
		} else {
			bins = 256
		}
	}

	h := hbook.NewH1D(bins, 0, float64(maxVal)+1)
	for _, p := range f.Pix {
		h.Fill(float64(p), 1)
	}
	return h
}

// FrameStats returns the mean and standard deviation of the pixel
// intensities.
func FrameStats(f *scope.Frame) (mean, stddev float64) {
	vals := make([]float64, len(f.Pix))
	for i, p := range f.Pix {
		vals[i] = float64(p)
	}
	mean, stddev = stat.MeanStdDev(vals, nil)
	return mean, stddev
}
