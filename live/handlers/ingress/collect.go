// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package ingress

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/rditech/scope-live/live"
	"github.com/rditech/scope-live/live/message"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/proio-org/go-proio"
	"golang.org/x/net/websocket"
)

// WsCollector is a Websocket ProIO data collector. Remote acquisition
// daemons push frame events here; each distinct stream gets its own
// processing pipeline fed through redis pub/sub.
type WsCollector struct {
	Redis            *redis.Client
	Addr             string
	DefaultNamespace string
}

func (wsc *WsCollector) Collect(c *websocket.Conn) {
	log.Println("serving websocket data collector to", c.Request().RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := proio.NewReader(c)
	defer reader.Close()
	reader.Skip(0)
	input := reader.ScanEvents(1000)

	// the pushed metadata names the stream and declares its bit depth
	streamName := string(reader.Metadata["Stream Name"])
	if streamName == "" {
		log.Println("falling back to random stream name")
		streamName = uuid.New().String()[:8]
	}
	depth := uint32(8)
	if d, err := strconv.Atoi(string(reader.Metadata["Depth"])); err == nil && d > 0 {
		depth = uint32(d)
	}

	namespace := wsc.DefaultNamespace
	chanString := namespace + " ingress " + streamName

	// if there is no stream data handler, create one
	nSub := wsc.Redis.PubSubNumSub(chanString).Val()
	if nSub[chanString] == 0 {
		if err := wsc.makeNewDataHandler(
			ctx,
			namespace,
			streamName,
			depth,
		); err != nil {
			log.Println(err)
			return
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: wsc.Addr})
	defer redisClient.Close()
	writer := proio.NewWriter(&PubSubWriter{Redis: redisClient, Channel: chanString})
	defer writer.Close()
	writer.BucketDumpThres = 0x1
	writer.SetCompression(proio.UNCOMPRESSED)
	log.Println("data collector starting writing to channel", chanString)
	defer log.Println("data collector done writing to channel", chanString)

	c.SetReadDeadline(time.Now().Add(10 * time.Second))
	for event := range input {
		// retransmit each input event over Redis PubSub, as long as a
		// stream handler is listening

		nSub := wsc.Redis.PubSubNumSub(chanString).Val()
		if nSub[chanString] == 0 {
			log.Printf("no stream handler for \"%s\"", chanString)
			break
		}

		writer.Push(event)

		c.SetReadDeadline(time.Now().Add(10 * time.Second))
	}
}

func (wsc *WsCollector) makeNewDataHandler(
	ctx context.Context,
	namespace,
	streamName string,
	depth uint32,
) error {
	chanString := namespace + " ingress " + streamName
	log.Println("subscribing new data handler to channel", chanString)

	redisClient := redis.NewClient(&redis.Options{Addr: wsc.Addr})
	pubSub := redisClient.Subscribe(chanString)
	_, err := pubSub.Receive()
	if err != nil {
		redisClient.Close()
		return err
	}

	go func() {
		defer redisClient.Close()
		defer pubSub.Close()
		reader := proio.NewReader(
			&PubSubReader{
				Channel: pubSub.ChannelSize(1000),
				Ctx:     ctx,
			},
		)
		defer reader.Close()
		input := reader.ScanEvents(1000)

		// publish input buffer size
		go func() {
			for {
				msg := &message.Msg{
					Type:     "stream status",
					Metadata: make(map[string]string),
				}
				msg.Metadata["stream"] = streamName
				msg.Metadata["Buffer Size"] = fmt.Sprintf("%v", len(input))
				message.PublishJsonMsg(redisClient, namespace+" stream "+streamName, msg)

				select {
				case <-ctx.Done():
					msg := &message.Msg{
						Type:     "stream status",
						Metadata: make(map[string]string),
					}
					msg.Metadata["stream"] = streamName
					msg.Metadata["Buffer Size"] = fmt.Sprintf("stream disconnected, wrapping up")
					message.PublishJsonMsg(redisClient, namespace+" stream "+streamName, msg)
					return
				default:
					time.Sleep(100 * time.Millisecond)
				}
			}
		}()

		// pipeline for the stream, fed from the pub/sub channel
		m := live.NewStream(namespace, streamName, redisClient, wsc.Addr, depth)
		m.Start()
		m.FeedEvents(input)
		m.Kill()

		log.Println("quitting subscriber goroutine on channel", chanString)
	}()

	return nil
}
