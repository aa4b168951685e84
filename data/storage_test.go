// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/proio-org/go-proio"
)

func TestFrameEventRoundTrip(t *testing.T) {
	frame := uniformFrame(8, 2, 2, 42)
	frame.Timestamp = 12345

	event := FrameToEvent(frame)
	got, err := FrameFromEvent(event)
	if err != nil {
		t.Fatal(err)
	}
	if !got.SameShape(frame) || got.Timestamp != 12345 {
		t.Errorf("round trip changed frame: %+v", got)
	}

	if _, err := FrameFromEvent(proio.NewEvent()); err == nil {
		t.Error("event without a Frame entry should fail")
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "runs")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ctx := context.Background()

	frame := uniformFrame(8, 3, 3, 7)
	runUrl := fmt.Sprintf("file://%v/%v", dir, RunName(time.Now()))

	if err := SaveFrame(ctx, runUrl, "", frame); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFrame(ctx, runUrl, "")
	if err != nil {
		t.Fatal(err)
	}
	if !got.SameShape(frame) {
		t.Fatalf("loaded frame shape differs: %+v", got)
	}
	for i := range got.Pix {
		if got.Pix[i] != 7 {
			t.Fatalf("pix[%d] = %d, want 7", i, got.Pix[i])
		}
	}

	runs, err := ListResourceRuns(ctx, "file://"+dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
}

func TestBadScheme(t *testing.T) {
	ctx := context.Background()
	if _, err := GetReader(ctx, "ftp://somewhere/run.proio", ""); err == nil {
		t.Error("ftp scheme should be rejected")
	}
	if _, err := GetWriter(ctx, "ftp://somewhere/run.proio", ""); err == nil {
		t.Error("ftp scheme should be rejected")
	}
	if _, err := ListResourceRuns(ctx, "ftp://somewhere", ""); err == nil {
		t.Error("ftp scheme should be rejected")
	}
}

func TestRunName(t *testing.T) {
	ts := time.Date(2021, time.March, 4, 15, 4, 5, 0, time.UTC)
	if got := RunName(ts); got != "2021_Mar4_15_04_05_UTC.proio" {
		t.Errorf("RunName = %q", got)
	}
}
