// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package scope

// MaxVal returns the largest representable pixel value for the frame's
// bit depth.
func (m *Frame) MaxVal() uint64 {
	if m.Depth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << m.Depth) - 1
}

// NChannels treats a zero channel count as grayscale.
func (m *Frame) NChannels() uint32 {
	if m.Channels == 0 {
		return 1
	}
	return m.Channels
}

// SameShape reports whether two frames can be combined pixelwise.
func (m *Frame) SameShape(o *Frame) bool {
	if m == nil || o == nil {
		return false
	}
	return m.Width == o.Width &&
		m.Height == o.Height &&
		m.Depth == o.Depth &&
		m.NChannels() == o.NChannels()
}

// Clone returns a deep copy. Frames are never mutated once they enter
// the ring buffer; stages that need a scratch buffer clone first.
func (m *Frame) Clone() *Frame {
	if m == nil {
		return nil
	}
	c := *m
	c.Pix = make([]uint64, len(m.Pix))
	copy(c.Pix, m.Pix)
	return &c
}
