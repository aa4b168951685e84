// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"testing"
)

type stubDriver struct {
	raw        *RawImage
	trigErr    error
	fetchErr   error
	triggered  int
	properties map[string]string
}

func (d *stubDriver) TriggerCapture() error {
	d.triggered++
	return d.trigErr
}

func (d *stubDriver) FetchImage() (*RawImage, error) {
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return d.raw, nil
}

func (d *stubDriver) SetProperty(device, key, value string) error {
	if d.properties == nil {
		d.properties = make(map[string]string)
	}
	d.properties[device+"/"+key] = value
	return nil
}

func (d *stubDriver) Close() error { return nil }

func TestCaptureNormalizesRGBA(t *testing.T) {
	// single pixel, R=G=B=100, alpha ignored
	d := &stubDriver{raw: &RawImage{
		Pix:      []byte{100, 100, 100, 255},
		Width:    1,
		Height:   1,
		Channels: 4,
	}}
	src := NewSource(d, 8, 8)

	f, err := src.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 1 || f.Height != 1 || f.Depth != 8 || f.NChannels() != 1 {
		t.Errorf("bad frame metadata: %+v", f)
	}
	// equal channels: luma weights sum to 1
	if f.Pix[0] != 100 {
		t.Errorf("pix = %d, want 100", f.Pix[0])
	}
}

func TestCaptureScalesToOutputDepth(t *testing.T) {
	d := &stubDriver{raw: &RawImage{
		Pix:      []byte{255},
		Width:    1,
		Height:   1,
		Channels: 1,
	}}
	src := NewSource(d, 8, 16)

	f, err := src.Capture()
	if err != nil {
		t.Fatal(err)
	}
	// scale factor is 65535/255, fixed at startup
	if f.Pix[0] != 65535 {
		t.Errorf("pix = %d, want 65535", f.Pix[0])
	}

	d.raw.Pix = []byte{0}
	f, err = src.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if f.Pix[0] != 0 {
		t.Errorf("pix = %d, want 0", f.Pix[0])
	}
}

func TestCaptureErrors(t *testing.T) {
	tests := []struct {
		name string
		d    *stubDriver
	}{
		{"trigger failure", &stubDriver{trigErr: fmt.Errorf("bus stall")}},
		{"fetch failure", &stubDriver{fetchErr: fmt.Errorf("no tags")}},
		{"nil image", &stubDriver{raw: nil}},
		{"missing pixels", &stubDriver{raw: &RawImage{Width: 2, Height: 2, Channels: 1}}},
		{"short buffer", &stubDriver{raw: &RawImage{
			Pix: []byte{1, 2}, Width: 2, Height: 2, Channels: 1,
		}}},
	}
	for _, tt := range tests {
		src := NewSource(tt.d, 8, 8)
		_, err := src.Capture()
		if err == nil {
			t.Errorf("%v: expected error", tt.name)
			continue
		}
		if _, ok := err.(*CaptureError); !ok {
			t.Errorf("%v: error type %T, want *CaptureError", tt.name, err)
		}
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	sim := NewSimulator(8, 4)
	if err := sim.SetProperty("sim", "Value", "42"); err != nil {
		t.Fatal(err)
	}
	src := NewSource(sim, 8, 8)

	a, err := src.Capture()
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Capture()
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Pix {
		if a.Pix[i] != 42 || b.Pix[i] != 42 {
			t.Fatalf("pix[%d] = %d,%d, want 42", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestSimulatorFetchWithoutTrigger(t *testing.T) {
	sim := NewSimulator(2, 2)
	if _, err := sim.FetchImage(); err == nil {
		t.Error("expected error fetching without a trigger")
	}
}

func TestPresetApply(t *testing.T) {
	d := &stubDriver{}
	p := Presets{
		"bright": {
			"cam": {"Exposure": 500, "Gain": "2"},
		},
	}
	if err := p.Apply(d, "bright"); err != nil {
		t.Fatal(err)
	}
	if d.properties["cam/Exposure"] != "500" {
		t.Errorf("Exposure = %q, want 500", d.properties["cam/Exposure"])
	}
	if d.properties["cam/Gain"] != "2" {
		t.Errorf("Gain = %q, want 2", d.properties["cam/Gain"])
	}
	if err := p.Apply(d, "missing"); err == nil {
		t.Error("expected error for unknown preset")
	}
}
