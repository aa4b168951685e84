// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"log"

	"github.com/rditech/scope-live/data"

	"github.com/go-redis/redis"
	"github.com/proio-org/go-proio"
)

// NewStream builds the pipeline plumbing shared by every stream kind:
// the history ring, the parameter store, the result slot, the
// processing loop, and the manager that fronts them.
func NewStream(namespace, name string, client *redis.Client, addr string, depth uint32) *Manager {
	ring := data.NewRing(0)
	params := data.NewParamStore(0)
	slot := NewResultSlot()
	return &Manager{
		Namespace: namespace,
		Name:      name,
		Redis:     client,
		Addr:      addr,
		Processor: &Processor{
			Ring:   ring,
			Params: params,
			Slot:   slot,
			Depth:  depth,
		},
		Params: params,
		Slot:   slot,
		quit:   make(chan struct{}),
	}
}

// NewCameraStream attaches an acquisition loop to a stream so it feeds
// itself from a local frame source.
func NewCameraStream(namespace, name string, client *redis.Client, addr string, source FrameSource, depth uint32) *Manager {
	m := NewStream(namespace, name, client, addr, depth)
	m.Acquirer = &Acquirer{
		Source: source,
		Ring:   m.Processor.Ring,
	}
	return m
}

// Start launches the stream's loops and its manager.
func (m *Manager) Start() {
	if m.Acquirer != nil {
		m.Acquirer.Start()
	}
	m.Processor.Start()
	go m.Manage()
}

// FeedEvents drives an acquirer-less stream from a proio event
// channel, blocking until the channel closes. Events that do not carry
// a frame are logged and skipped.
func (m *Manager) FeedEvents(input <-chan *proio.Event) {
	for event := range input {
		frame, err := data.FrameFromEvent(event)
		if err != nil {
			log.Println(err)
			continue
		}
		m.Processor.Ring.Push(frame)
	}
}

// BuildPlayer builds a playback stream for a recorded run: events are
// paced by their recorded timestamps and fed into a fresh pipeline
// published under the run's name.
func BuildPlayer(namespace, stream string, client *redis.Client, addr string, speed float64, depth uint32) (*Manager, chan<- *proio.Event) {
	m := NewStream(namespace, stream, client, addr, depth)
	m.Start()

	input := make(chan *proio.Event, data.MaxHistory)
	paced := make(chan *proio.Event, data.MaxHistory)
	player := &data.Player{Speed: speed}
	go func() {
		player.PlayStream(input, paced)
		close(paced)
	}()
	go func() {
		m.FeedEvents(paced)
		m.Kill()
	}()

	return m, input
}
