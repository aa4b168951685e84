// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"testing"

	"github.com/rditech/scope-live/model/scope"
)

func TestIntegrateSingleFrameVerbatim(t *testing.T) {
	newest := uniformFrame(8, 2, 2, 200)
	history := []*scope.Frame{uniformFrame(8, 2, 2, 10), newest}

	if got := Integrate(history, 1); got != newest {
		t.Error("count 1 should return the newest frame verbatim")
	}
	if got := Integrate(history[1:], 5); got != newest {
		t.Error("single-frame history should return the frame verbatim")
	}
}

func TestIntegrateWeights(t *testing.T) {
	// n=2: newest weight 2/2 at i=0, then acc*(1/2) + older*(1/2)
	// gives (newest + older) / 2
	history := []*scope.Frame{
		uniformFrame(8, 1, 1, 100),
		uniformFrame(8, 1, 1, 200),
	}
	out := Integrate(history, 2)
	if out.Pix[0] != 150 {
		t.Errorf("pix = %d, want 150", out.Pix[0])
	}

	// identical frames integrate to themselves
	same := []*scope.Frame{
		uniformFrame(8, 1, 1, 80),
		uniformFrame(8, 1, 1, 80),
		uniformFrame(8, 1, 1, 80),
	}
	out = Integrate(same, 3)
	if out.Pix[0] != 80 {
		t.Errorf("uniform history integrated to %d, want 80", out.Pix[0])
	}
}

func TestIntegrateSkipsMismatchedShapes(t *testing.T) {
	history := []*scope.Frame{
		uniformFrame(8, 4, 4, 50),
		uniformFrame(8, 1, 1, 200),
	}
	out := Integrate(history, 2)
	if out.Width != 1 || out.Height != 1 {
		t.Fatalf("output shape %dx%d, want 1x1", out.Width, out.Height)
	}
	// the mismatched older frame contributes nothing
	if out.Pix[0] != 200 {
		t.Errorf("pix = %d, want 200", out.Pix[0])
	}
}

func TestSubtractDarkModes(t *testing.T) {
	img := uniformFrame(8, 1, 1, 5)
	dark := uniformFrame(8, 1, 1, 10)

	out, err := SubtractDark(img, dark, Subtract)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pix[0] != 0 {
		t.Errorf("subtract clamps at zero: got %d", out.Pix[0])
	}

	out, err = SubtractDark(img, dark, AbsDiff)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pix[0] != 5 {
		t.Errorf("absdiff = %d, want 5", out.Pix[0])
	}

	_, err = SubtractDark(img, uniformFrame(8, 2, 2, 0), Subtract)
	if err == nil {
		t.Fatal("shape mismatch should fail")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type %T, want *ConfigError", err)
	}
}

func TestGateTransfer(t *testing.T) {
	f := GateFunc(50, 200, 255)
	tests := []struct {
		in, want uint64
	}{
		{0, 0},
		{49, 0},
		{50, 0},
		{125, 127}, // (125-50)*255/150 = 127.5, truncated
		{199, 253},
		{200, 255},
		{255, 255},
	}
	for _, tt := range tests {
		if got := f(tt.in); got != tt.want {
			t.Errorf("gate(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	// the materialized table agrees with the function
	lut := BuildLUT(50, 200, 255)
	for in := uint64(0); in <= 255; in++ {
		if lut[in] != f(in) {
			t.Fatalf("lut[%d] = %d, func gives %d", in, lut[in], f(in))
		}
	}

	// monotonic
	for in := uint64(1); in <= 255; in++ {
		if lut[in] < lut[in-1] {
			t.Fatalf("lut not monotonic at %d", in)
		}
	}
}

func TestApplyGateDeepFrame(t *testing.T) {
	// depth above the table limit exercises the per-pixel path
	f := &scope.Frame{Width: 1, Height: 3, Depth: 32, Channels: 1,
		Pix: []uint64{0, 1 << 31, 1<<32 - 1}}
	out := ApplyGate(f, 0, int(uint64(1)<<32-1))
	if out.Pix[0] != 0 || out.Pix[2] != 1<<32-1 {
		t.Errorf("endpoints = %d,%d", out.Pix[0], out.Pix[2])
	}
}

func TestApplyGateDeepStreamOpenGate(t *testing.T) {
	// the default gate leaves a 64-bit stream untouched rather than
	// saturating everything above the int gate ceiling
	f := &scope.Frame{Width: 2, Height: 1, Depth: 64, Channels: 1,
		Pix: []uint64{1 << 40, 1 << 12}}
	snap := DefaultSnapshot(64)

	out := ApplyGate(f, snap.GateLow, snap.GateHigh)
	for i, p := range f.Pix {
		if out.Pix[i] != p {
			t.Errorf("pix[%d] = %d, want %d", i, out.Pix[i], p)
		}
	}

	res, err := Process([]*scope.Frame{f}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Equalized.Pix[0] != 1<<40 {
		t.Errorf("equalized = %d, want %d", res.Equalized.Pix[0], uint64(1)<<40)
	}
}

func TestCompositePassthroughAndBlend(t *testing.T) {
	eq := uniformFrame(8, 1, 1, 100)
	overlay := uniformFrame(8, 1, 1, 200)

	// opacity 0: red channel carries the signal untouched, overlay
	// contributes nothing
	out, err := Composite(eq, overlay, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.NChannels() != 3 {
		t.Fatalf("channels = %d, want 3", out.NChannels())
	}
	if out.Pix[0] != 100 || out.Pix[1] != 0 || out.Pix[2] != 0 {
		t.Errorf("opacity 0: rgb = %d,%d,%d, want 100,0,0", out.Pix[0], out.Pix[1], out.Pix[2])
	}

	// opacity 50: red = 0.5*100 + 0.5*200 = 150, green/blue = 0.5*200
	out, err = Composite(eq, overlay, 50)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pix[0] != 150 || out.Pix[1] != 100 || out.Pix[2] != 100 {
		t.Errorf("opacity 50: rgb = %d,%d,%d, want 150,100,100", out.Pix[0], out.Pix[1], out.Pix[2])
	}

	if _, err := Composite(eq, uniformFrame(8, 2, 1, 0), 50); err == nil {
		t.Error("shape mismatch should fail")
	}
}

func TestProcessUniformEndToEnd(t *testing.T) {
	// uniform 125 through gate (50,200) on an 8-bit stream lands on
	// 127 everywhere
	params := DefaultSnapshot(8)
	params.GateLow = 50
	params.GateHigh = 200

	history := []*scope.Frame{uniformFrame(8, 4, 4, 125)}
	res, err := Process(history, params)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range res.Equalized.Pix {
		if p != 127 {
			t.Fatalf("equalized[%d] = %d, want 127", i, p)
		}
	}
	// no overlay: final is the equalized frame bit for bit
	if res.Final != res.Equalized {
		t.Error("final should be the equalized frame when overlay is off")
	}
}

func TestProcessDeterministic(t *testing.T) {
	params := DefaultSnapshot(8)
	params.IntegrationEnabled = true
	params.IntegrationCount = 3
	params.SubtractDark = true
	params.Dark = uniformFrame(8, 2, 2, 10)
	params.GateLow = 20
	params.GateHigh = 240

	history := []*scope.Frame{
		uniformFrame(8, 2, 2, 90),
		uniformFrame(8, 2, 2, 110),
		uniformFrame(8, 2, 2, 130),
	}

	a, err := Process(history, params)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Process(history, params)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Final.Pix {
		if a.Final.Pix[i] != b.Final.Pix[i] {
			t.Fatalf("pix[%d] differs between identical runs", i)
		}
	}
}

func TestProcessEmptyHistory(t *testing.T) {
	res, err := Process(nil, DefaultSnapshot(8))
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Error("empty history should produce a nil result")
	}
}

func TestProcessConfigErrorPropagates(t *testing.T) {
	params := DefaultSnapshot(8)
	params.SubtractDark = true
	params.Dark = uniformFrame(8, 3, 3, 0)

	_, err := Process([]*scope.Frame{uniformFrame(8, 2, 2, 50)}, params)
	if err == nil {
		t.Fatal("mismatched dark should fail")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type %T, want *ConfigError", err)
	}
}

func TestHist(t *testing.T) {
	f := uniformFrame(8, 2, 2, 100)
	h := Hist(f, 0)
	if h.Entries() != 4 {
		t.Errorf("entries = %d, want 4", h.Entries())
	}

	mean, stddev := FrameStats(f)
	if mean != 100 || stddev != 0 {
		t.Errorf("stats = %v,%v, want 100,0", mean, stddev)
	}
}
