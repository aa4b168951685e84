// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"bytes"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/live/message"
	"github.com/rditech/scope-live/model/scope"
	rdiplot "github.com/rditech/scope-live/plot"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// IntensityHistSample carries a pipeline stage frame plus the active
// gate, so the histogram can mark the gated band.
type IntensityHistSample struct {
	Frame    *scope.Frame
	GateLow  int
	GateHigh int
}

// IntensityHist plots the pixel intensity distribution of the most
// recent frame with the gate bounds drawn as vertical markers. The
// operator steers the gate by watching where the signal sits relative
// to the markers.
type IntensityHist struct {
	Bins        int
	LogScale    bool
	FramePeriod time.Duration

	sample *IntensityHistSample

	frame        *message.Msg
	frameCount   uint64
	frameExpired bool

	sync.RWMutex
	plot.Plot
}

func (s *IntensityHist) Frame() (*message.Msg, uint64) {
	s.RLock()
	defer s.RUnlock()

	return s.frame, s.frameCount
}

func (s *IntensityHist) Execute(cmd *message.Cmd) error {
	s.Lock()
	defer s.Unlock()

	switch cmd.Command {
	case "set params":
		for param, value := range cmd.Metadata {
			switch param {
			case "bins":
				bins, err := strconv.Atoi(value)
				if err == nil && bins > 0 {
					s.Bins = bins
				}
			case "logscale":
				if strings.ToLower(value) == "false" {
					s.LogScale = false
					s.Y.Tick.Marker = plot.DefaultTicks{}
					s.Y.Scale = plot.LinearScale{}
				} else {
					s.LogScale = true
					s.Y.Tick.Marker = rdiplot.LogTicks{}
					s.Y.Scale = &rdiplot.FuncScale{Func: rdiplot.Log10Min3}
				}
			}
		}
	}

	return nil
}

func (s *IntensityHist) AddSample(vi interface{}) {
	v, ok := vi.(*IntensityHistSample)
	if !ok || v.Frame == nil {
		return
	}

	s.Lock()
	defer s.Unlock()

	s.sample = v

	if s.frameExpired {
		s.frameExpired = false
		go s.updateFrame(true)
	}
}

func (s *IntensityHist) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	// the histogram is rebuilt from scratch each frame
	s.initPlot()

	if s.sample != nil {
		hist := data.Hist(s.sample.Frame, s.Bins)
		h := hplot.NewH1D(hist)
		h.Infos.Style = hplot.HInfoEntries | hplot.HInfoMean
		s.Add(h)

		maxCount := 1.0
		for _, bin := range hist.Binning.Bins {
			if bin.SumW() > maxCount {
				maxCount = bin.SumW()
			}
		}
		low, _ := plotter.NewLine(plotter.XYs{
			{X: float64(s.sample.GateLow), Y: 0},
			{X: float64(s.sample.GateLow), Y: maxCount},
		})
		high, _ := plotter.NewLine(plotter.XYs{
			{X: float64(s.sample.GateHigh), Y: 0},
			{X: float64(s.sample.GateHigh), Y: maxCount},
		})
		if low != nil && high != nil {
			low.Color = color.RGBA{B: 255, A: 255}
			high.Color = color.RGBA{R: 255, A: 255}
			s.Add(low, high)
			s.Legend.Add("gate low", low)
			s.Legend.Add("gate high", high)
		}
	}

	svg := vgsvg.New(4*vg.Inch, 2.5*vg.Inch)
	c := draw.New(svg)
	s.Draw(c)
	buf := &bytes.Buffer{}
	svg.WriteTo(buf)

	s.frame = &message.Msg{
		Metadata: make(map[string]string),
		Payload:  buf.Bytes(),
	}
	s.frame.Metadata["show type"] = "Intensity Histogram"
	s.frame.Metadata["bins"] = strconv.Itoa(s.Bins)
	s.frame.Metadata["logscale"] = strconv.FormatBool(s.LogScale)

	s.frameCount++

	go func() {
		time.Sleep(s.FramePeriod)
		s.Lock()
		defer s.Unlock()
		s.frameExpired = true
	}()
}

func (s *IntensityHist) UpdateFrame() {
	s.updateFrame(true)
}

func (s *IntensityHist) UpdateFrameCount() {
	s.Lock()
	defer s.Unlock()
	s.frameCount++
}

func (s *IntensityHist) InitPlot() {
	s.Lock()
	defer s.Unlock()
	s.initPlot()
}

func (s *IntensityHist) initPlot() {
	donor, _ := plot.New()
	s.Plot = *donor
	s.BackgroundColor = color.Transparent
	s.Title.Text = "Pixel Intensity"
	s.X.Label.Text = "level"
	s.Y.Label.Text = "count"
	if s.LogScale {
		s.Y.Tick.Marker = rdiplot.LogTicks{}
		s.Y.Scale = &rdiplot.FuncScale{Func: rdiplot.Log10Min3}
	}
}
