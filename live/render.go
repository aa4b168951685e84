// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/rditech/scope-live/model/scope"
)

// FrameImage converts a pipeline frame to an 8-bit image for display.
// Deeper streams are scaled down to 8 bits; single-channel frames
// render as grayscale and three-channel frames as RGB.
func FrameImage(f *scope.Frame) image.Image {
	maxVal := f.MaxVal()
	to8 := func(v uint64) uint8 {
		if f.Depth <= 8 {
			return uint8(v)
		}
		return uint8(float64(v) * 255 / float64(maxVal))
	}

	w, h := int(f.Width), int(f.Height)
	if f.NChannels() == 3 {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := 3 * (y*w + x)
				img.SetRGBA(x, y, color.RGBA{
					R: to8(f.Pix[off]),
					G: to8(f.Pix[off+1]),
					B: to8(f.Pix[off+2]),
					A: 255,
				})
			}
		}
		return img
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: to8(f.Pix[y*w+x])})
		}
	}
	return img
}

// EncodeFramePng renders the frame as a PNG byte stream.
func EncodeFramePng(f *scope.Frame) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, FrameImage(f)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
