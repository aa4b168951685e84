// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package plot

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

type FuncScale struct {
	Func func(float64) float64
}

func (s *FuncScale) Normalize(min, max, x float64) float64 {
	if s.Func == nil {
		panic("s.Func is nil")
	}
	fMin := s.Func(min)
	return (s.Func(x) - fMin) / (s.Func(max) - fMin)
}

func Log10Min3(x float64) float64 {
	if x <= 0.001 {
		return -3
	}
	return math.Log10(x)
}

func Log10Min15(x float64) float64 {
	if x <= 1e-15 {
		return -15
	}
	return math.Log10(x)
}

type LogTicks struct{}

func (LogTicks) Ticks(min, max float64) []plot.Tick {
	val := math.Pow10(int(Log10Min15(min)))
	max = math.Pow10(int(math.Ceil(Log10Min15(max))))
	var ticks []plot.Tick
	for val < max {
		for i := 1; i < 10; i++ {
			if i == 1 {
				ticks = append(ticks, plot.Tick{Value: val, Label: formatFloatTick(val, 5)})
			}
			ticks = append(ticks, plot.Tick{Value: val * float64(i)})
		}
		val *= 10
	}
	ticks = append(ticks, plot.Tick{Value: val, Label: formatFloatTick(val, 5)})

	return ticks
}

func formatFloatTick(v float64, prec int) string {
	return strconv.FormatFloat(v, 'g', prec, 64)
}
