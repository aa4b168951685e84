// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log"

	"github.com/rditech/scope-live/data"
)

var (
	gateLow    = data.FlagSet.Int("gatelow", 0, "lower gate bound")
	gateHigh   = data.FlagSet.Int("gatehigh", 0, "upper gate bound, 0 for full scale")
	integrate  = data.FlagSet.Int("n", 1, "integration frame count")
	absDiff    = data.FlagSet.Bool("absdiff", false, "use absolute difference dark subtraction")
	darkUrl    = data.FlagSet.String("dark", "", "url of a saved dark reference")
	staticUrl  = data.FlagSet.String("static", "", "url of a saved static overlay")
	opacity    = data.FlagSet.Int("opacity", 50, "overlay opacity percentage")
	depth      = data.FlagSet.Uint("depth", 8, "stream bit depth")
	credential = data.FlagSet.String("credentials", "", "credentials for reference urls")
	finalOnly  = data.FlagSet.Bool("final", false, "keep only the rendered output frames")
	rawOnly    = data.FlagSet.Bool("raw", false, "strip previously derived entries, keeping only raw frames")
)

func main() {
	ops := data.OpArray{}
	ops.RunCmdFlagParse()

	params := data.DefaultSnapshot(uint32(*depth))
	params.GateLow = *gateLow
	if *gateHigh > 0 {
		params.GateHigh = *gateHigh
	}
	if *integrate > 1 {
		params.IntegrationEnabled = true
		params.IntegrationCount = *integrate
	}
	if *absDiff {
		params.Mode = data.AbsDiff
	}

	ctx := context.Background()
	if *darkUrl != "" {
		dark, err := data.LoadFrame(ctx, *darkUrl, *credential)
		if err != nil {
			log.Fatal(err)
		}
		params.SubtractDark = true
		params.Dark = dark
	}
	if *staticUrl != "" {
		static, err := data.LoadFrame(ctx, *staticUrl, *credential)
		if err != nil {
			log.Fatal(err)
		}
		params.OverlayEnabled = true
		params.Static = static
		params.OverlayOpacity = *opacity
	}

	repro := &data.Reprocessor{Params: params}
	ops = data.OpArray{}
	if *rawOnly {
		ops = append(ops, data.EventOp{
			Description:    "Strips previously derived entries",
			EventProcessor: data.KeepOnlyRawFrames,
			Concurrency:    16,
		})
	}
	ops = append(ops, data.StreamOp{
		Description:     "Replays the display pipeline with fixed parameters",
		StreamProcessor: repro.Reprocess,
	})
	if *finalOnly {
		ops = append(ops, data.EventOp{
			Description:    "Keeps only the rendered output frames",
			EventProcessor: data.KeepOnlyFinalFrames,
			Concurrency:    16,
		})
	}

	ops.RunCmd()
}
