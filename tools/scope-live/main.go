// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/rditech/scope-live/daq/camera"
	"github.com/rditech/scope-live/live"
	"github.com/rditech/scope-live/live/handlers/client"
	"github.com/rditech/scope-live/live/handlers/ingress"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/gorilla/mux"
	"github.com/skratchdot/open-golang/open"
	"golang.org/x/net/websocket"
)

var (
	openBrowser = flag.Bool("b", false, "open a browser window and connect to server")
	simCamera   = flag.Bool("sim", false, "serve a simulated local camera stream")
	simWidth    = flag.Int("simwidth", 640, "simulated camera width")
	simHeight   = flag.Int("simheight", 480, "simulated camera height")
	presetFile  = flag.String("presets", "", "camera preset yaml file")
	preset      = flag.String("preset", "", "camera preset to apply at startup")
	cpuProfile  = flag.String("cpuprofile", "", "output file for cpu profiling")
)

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options]

Live imaging viewer and stream server

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	// Define redis connection
	redisAddr := os.Getenv("REDIS_ADDR")
	if len(redisAddr) == 0 {
		s, err := miniredis.Run()
		if err != nil {
			log.Println("unable to start miniredis server:", err)
		}
		redisAddr = s.Addr()
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()
	ping := redisClient.Ping()
	if ping.Err() != nil {
		log.Fatalf("unable to ping redis server: %v\n", ping.Err())
	} else {
		log.Printf("successfully connected to redis server at %v with status %v\n", redisAddr, ping.String())
	}

	// Optional local camera stream backed by the simulated driver
	if *simCamera {
		driver := camera.NewSimulator(*simWidth, *simHeight)
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
		source := camera.NewSource(driver, 8, 8)
		stream := live.NewCameraStream("everyone", "local-camera", redisClient, redisAddr, source, 8)
		stream.Start()
		defer stream.Kill()
	}

	// Define handlers
	clientHandler := &client.ClientHandler{Redis: redisClient, Addr: redisAddr}
	clientHandler.MaxNPR = float64(100)
	if len(os.Getenv("MAX_NPR")) > 0 {
		if max, err := strconv.ParseFloat(os.Getenv("MAX_NPR"), 64); err == nil {
			clientHandler.MaxNPR = max
		}
	}
	clientHandler.EnableCompression = true
	wsc := &ingress.WsCollector{Redis: redisClient, Addr: redisAddr, DefaultNamespace: "everyone"}
	ingressHandler := websocket.Handler(wsc.Collect)
	webdataHandler := http.StripPrefix("/webdata/", http.FileServer(live.WebdataBox))
	rootHandler := http.StripPrefix("/", http.FileServer(live.WebdataBox))

	// Define http server and routes
	port := os.Getenv("PORT")
	if len(port) == 0 {
		port = "8080"
	}
	router := mux.NewRouter()
	router.Handle("/client", clientHandler)
	router.Handle("/ingress", ingressHandler)
	router.PathPrefix("/webdata/").Handler(webdataHandler)
	router.PathPrefix("/").Handler(rootHandler)

	srv := &http.Server{Addr: ":" + port, Handler: router}
	switch strings.ToLower(os.Getenv("SECURE_ONLY")) {
	case "true", "on":
		log.Println("Enabling HTTP proxy securing middleware")
		srv = &http.Server{Addr: ":" + port, Handler: Secure(router)}
	}

	// Turn on cpu profiling if output file is specified
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Set up interrupt for nice quitting
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		srv.Shutdown(context.Background())
	}()

	// Open a browser window if flag is set
	if *openBrowser {
		// Instruct the clientHandler to shutdown the server when clients all
		// disconnect
		clientHandler.Srv = srv
		go func() {
			time.Sleep(10 * time.Millisecond)
			open.Run("http://localhost:" + port)
		}()
	}

	// Launch HTTP server and main display routine
	log.Println("http server started on :" + port)
	if err := srv.ListenAndServe(); err != nil {
		log.Println("ListenAndServe: ", err)
	}

	log.Println("successful quit")
}

// Middleware for redirecting http requests that are behind an HTTP proxy to
// https
func Secure(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if strings.ToLower(r.Header.Get("x-forwarded-proto")) == "http" {
				target := "https://" + r.Host + r.URL.Path
				if len(r.URL.RawQuery) > 0 {
					target += "?" + r.URL.RawQuery
				}
				log.Printf("redirect to: %s", target)
				http.Redirect(w, r, target,
					http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		},
	)
}
