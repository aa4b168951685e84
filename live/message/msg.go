// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package message

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis"
	"github.com/gorilla/websocket"
)

// Msg is a published notification: pipeline frames, show frames,
// stream status. Payload carries the encoded image or plot.
type Msg struct {
	Type     string
	Metadata map[string]string
	Payload  []byte
}

func PublishJsonMsg(redis *redis.Client, channel string, msg *Msg) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	redis.Publish(channel, string(msgBytes))
	return nil
}

// Cmd is a control request addressed to a stream manager or a show.
type Cmd struct {
	Command  string
	Metadata map[string]string
}

type Executer interface {
	Execute(*Cmd) error
}

// ReceivePubSubCmds subscribes to the redis channel and decodes
// commands until the context is canceled.
func ReceivePubSubCmds(ctx context.Context, addr, channel string) <-chan *Cmd {
	cmds := make(chan *Cmd)

	go func() {
		defer close(cmds)

		redisClient := redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
		sub := redisClient.Subscribe(channel)
		if _, err := sub.Receive(); err != nil {
			log.Println("sub.Receive():", err)
			return
		}
		defer sub.Close()

		log.Println("listening for commands on channel", channel)
		defer log.Println("done listening for commands on channel", channel)

		subChannel := sub.ChannelSize(10)
		for {
			select {
			case msg := <-subChannel:
				var cmd Cmd
				if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
					return
				}
				cmds <- &cmd
			case <-ctx.Done():
				return
			}
		}
	}()

	return cmds
}

// ReceiveWsCmds decodes commands from a websocket until it closes.
func ReceiveWsCmds(ctx context.Context, c *websocket.Conn) <-chan *Cmd {
	cmds := make(chan *Cmd)

	go func() {
		defer close(cmds)

		for {
			var cmd Cmd
			if err := c.ReadJSON(&cmd); err != nil {
				return
			}
			select {
			case cmds <- &cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	return cmds
}
