// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/rditech/scope-live/daq/camera"
	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/live"
	"github.com/rditech/scope-live/model/scope"

	"github.com/golang/protobuf/proto"
	"github.com/proio-org/go-proio"
	"github.com/sevlyar/go-daemon"
	"golang.org/x/exp/io/i2c"
	"golang.org/x/net/websocket"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "output file for cpu profiling")
	daemonize  = flag.Bool("d", false, "daemonize acquisition")
	simulate   = flag.Bool("sim", false, "acquire from the simulated backend")
	simWidth   = flag.Int("simwidth", 640, "simulated camera width")
	simHeight  = flag.Int("simheight", 480, "simulated camera height")
	presetFile = flag.String("presets", "", "camera preset yaml file")
	preset     = flag.String("preset", "", "camera preset to apply at startup")
	delay      = flag.Duration("delay", live.DefaultAcquireDelay, "delay between captures")
)

const pushBufSize = 1000

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options]

Camera acquisition daemon: captures frames and pushes them to a
scope-live ingress endpoint

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 0 {
		printUsage()
		log.Fatal("invalid arguments")
	}

	if *daemonize {
		ctxt := &daemon.Context{}
		d, err := ctxt.Reborn()
		if err != nil {
			log.Fatal("unable to daemonize acquisition:", err)
		}
		if d != nil {
			return
		}
		log.Println("daemon started")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c)

	driver, err := openDriver()
	if err != nil {
		// a broken driver at startup is fatal
		log.Fatal(err)
	}
	defer driver.Close()

	if *presetFile != "" {
		presets, err := camera.LoadPresets(*presetFile)
		if err != nil {
			log.Fatal(err)
		}
		if *preset == "" {
			log.Fatal("no preset chosen, available: ", presets.Names())
		}
		if err := presets.Apply(driver, *preset); err != nil {
			log.Fatal(err)
		}
	}

	depth := uint32(8)
	if d, err := strconv.Atoi(os.Getenv("DEPTH")); err == nil && d > 0 {
		depth = uint32(d)
	}
	source := camera.NewSource(driver, 8, depth)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	push := make(chan *proio.Event, pushBufSize)
	done := make(chan bool)
	go pushEvents(push, done, depth)

	for {
		frame, err := source.Capture()
		switch err.(type) {
		case nil:
			select {
			case push <- data.FrameToEvent(frame):
			default:
			}
		case *camera.CaptureError:
			log.Println("capture:", err)
		default:
			log.Println("acquisition:", err)
		}

		time.Sleep(*delay)

		select {
		case <-c:
			goto wrapup
		case <-done:
			goto wrapup
		default:
		}
	}

wrapup:
	close(push)
	<-done

	log.Println("quitting nicely")
}

func openDriver() (camera.Driver, error) {
	if *simulate {
		return camera.NewSimulator(*simWidth, *simHeight), nil
	}
	return nil, &camera.DriverError{Err: fmt.Errorf("no camera backend on this build, use -sim")}
}

func pushEvents(push <-chan *proio.Event, done chan<- bool, depth uint32) {
	defer close(done)

	url := os.Getenv("OUTPUT_URL")
	if len(url) == 0 {
		url = "ws://localhost:8080/ingress"
	}
	streamName := os.Getenv("STREAM_NAME")
	if len(streamName) == 0 {
		streamName, _ = os.Hostname()
	}

	quit := make(chan bool)
	tempData := make(chan []byte)
	go func() {
		defer close(tempData)
		for {
			select {
			case <-quit:
				return
			case tempData <- getTempData():
			}
			time.Sleep(time.Second)
		}
	}()

	var writer *proio.Writer
	tryConn := func() error {
		conn, err := websocket.Dial(url, "", "http://localhost/")
		if err != nil {
			writer = nil
			return err
		}

		writer = proio.NewWriter(conn)
		writer.SetCompression(proio.UNCOMPRESSED)
		writer.BucketDumpThres = 0x1
		writer.DeferUntilClose(conn.Close)
		writer.PushMetadata("Stream Name", []byte(streamName))
		writer.PushMetadata("Depth", []byte(strconv.Itoa(int(depth))))

		return nil
	}

	for i := 0; i < 2; i++ {
		err := tryConn()
		if err == nil {
			defer writer.Close()
			goto pushLoop
		}
		log.Println(err)
	}
	goto wrapup

pushLoop:
	for {
		select {
		case event := <-push:
			if event == nil {
				goto wrapup
			}
			if err := writer.Push(event); err != nil {
				log.Println(err)
				for i := 0; i < 2; i++ {
					err := tryConn()
					if err == nil {
						defer writer.Close()
						goto pushLoop
					}
					log.Println(err)
				}
				goto wrapup
			}
		case buf := <-tempData:
			if buf != nil {
				writer.PushMetadata("Temp", buf)
			}
		}
	}

wrapup:
	close(quit)
}

// getTempData samples the board LM73 sensor. A board without the
// sensor just reports no metadata.
func getTempData() []byte {
	d, err := i2c.Open(&i2c.Devfs{Dev: "/dev/i2c-0"}, 0x4c)
	if err != nil {
		return nil
	}
	defer d.Close()

	buf := make([]byte, 2)
	if err := d.ReadReg(0x0, buf); err != nil {
		log.Printf("failure to read LM73 temperature: %v", err)
		return nil
	}

	// 0.25 C per lsb after the 2-bit pad
	raw := int16(buf[0])<<8 | int16(buf[1])
	temp := &scope.Temp{Board: []float32{float32(raw>>2) * 0.25}}
	out, err := proto.Marshal(temp)
	if err != nil {
		log.Println(err)
		return nil
	}
	return out
}
