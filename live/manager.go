// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rditech/scope-live/data"
	"github.com/rditech/scope-live/live/message"
	"github.com/rditech/scope-live/live/shows"
	"github.com/rditech/scope-live/model/scope"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/proio-org/go-proio"
)

type ShowInfo struct {
	Show          interface{}
	Cancel        context.CancelFunc
	SampleChannel chan<- interface{}
}

// Manager owns one imaging stream: it watches the result slot,
// publishes display frames over redis, dispatches operator commands
// into the pipeline, and records runs. One Manager goroutine per
// stream.
type Manager struct {
	Namespace string
	Name      string
	Redis     *redis.Client
	Addr      string

	Acquirer  *Acquirer
	Processor *Processor
	Params    *data.ParamStore
	Slot      *ResultSlot
	Metadata  map[string]string

	ctx context.Context

	showInfo map[uuid.UUID]ShowInfo

	runChannel  chan *proio.Event
	runFilename string

	lastDropped uint64
	lastSeq     uint64
	startTime   time.Time

	quit chan struct{}
}

// Manage runs the stream manager until a kill command arrives. The
// acquisition and processing loops are stopped in that order on the
// way out, so the ring has no writer while the processor drains.
func (m *Manager) Manage() {
	var cancel context.CancelFunc
	m.ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	defer m.rmAllShows(&message.Cmd{})

	if m.showInfo == nil {
		m.showInfo = make(map[uuid.UUID]ShowInfo)
	}

	cmds := message.ReceivePubSubCmds(m.ctx, m.Addr, m.Namespace+" stream cmd "+m.Name)
	m.announce()
	defer m.closeStream()

	defer func() {
		if m.Acquirer != nil {
			m.Acquirer.Stop()
		}
		m.Processor.Stop()
		m.stopRun(&message.Cmd{})
	}()

	m.startTime = time.Now()
	for {
		select {
		case <-m.quit:
			return
		case <-m.Slot.Ready():
			m.handleResult(m.Slot.Latest())
		case cmd := <-cmds:
			if cmd == nil || cmd.Command == "kill" {
				return
			}
			m.execute(cmd)
		}
	}
}

// Kill shuts the manager down from outside the command fabric, for
// ingress streams whose upstream connection has closed. Safe to call
// more than once.
func (m *Manager) Kill() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

func (m *Manager) handleResult(res *data.Result) {
	if res == nil || res.Seq == m.lastSeq {
		return
	}
	m.lastSeq = res.Seq

	if dropped := m.Params.Dropped(); dropped != m.lastDropped {
		log.Printf("parameter queue saturated, %v updates dropped", dropped-m.lastDropped)
		m.lastDropped = dropped
	}

	payload, err := EncodeFramePng(res.Final)
	if err != nil {
		log.Println(err)
		return
	}
	msg := &message.Msg{
		Type:     "frame update",
		Metadata: make(map[string]string),
		Payload:  payload,
	}
	msg.Metadata["stream"] = m.Name
	msg.Metadata["seq"] = strconv.FormatUint(res.Seq, 10)
	if err := message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg); err != nil {
		log.Println(err)
	}

	snap := m.Processor.Snapshot()
	sample := &shows.IntensityHistSample{
		Frame:    res.Integrated,
		GateLow:  snap.GateLow,
		GateHigh: snap.GateHigh,
	}
	for _, info := range m.showInfo {
		select {
		case info.SampleChannel <- sample:
		default:
		}
	}

	if m.runChannel != nil {
		select {
		case m.runChannel <- data.FrameToEvent(res.Final):
		default:
		}
	}
}

func (m *Manager) announce() {
	msg := &message.Msg{
		Metadata: make(map[string]string),
	}
	msg.Type = "stream announce"
	msg.Metadata["name"] = m.Name
	if err := message.PublishJsonMsg(m.Redis, m.Namespace+" broadcast", msg); err != nil {
		log.Println(err)
	}
}

func (m *Manager) closeStream() {
	msg := &message.Msg{
		Metadata: make(map[string]string),
	}
	msg.Type = "stream close"
	msg.Metadata["name"] = m.Name
	if err := message.PublishJsonMsg(m.Redis, m.Namespace+" broadcast", msg); err != nil {
		log.Println(err)
	}
}

func (m *Manager) execute(cmd *message.Cmd) {
	log.Println("Manager:", cmd.Command)

	switch cmd.Command {
	case "set param":
		m.setParam(cmd)
	case "take dark":
		m.takeDark(cmd)
	case "take static":
		m.takeStatic(cmd)
	case "load dark":
		m.loadRef(cmd, data.ParamDark)
	case "load static":
		m.loadRef(cmd, data.ParamStatic)
	case "save image":
		m.saveImage(cmd)
	case "pause render":
		if !m.Processor.Pause() {
			log.Println("control queue saturated, pause dropped")
		}
	case "resume render":
		if !m.Processor.Resume() {
			log.Println("control queue saturated, resume dropped")
		}
	case "new show":
		m.newShow(cmd)
	case "rm show":
		m.rmShow(cmd)
	case "rm all shows":
		m.rmAllShows(cmd)
	case "show cmd":
		m.showCmd(cmd)
	case "pub all shows":
		m.pubAllShows(cmd)
	case "start run":
		m.startRun(cmd)
	case "stop run":
		m.stopRun(cmd)
	case "pub status":
		m.pubStatus(cmd)
	}
}

func (m *Manager) setParam(cmd *message.Cmd) {
	update, err := data.ParseUpdate(cmd.Metadata["name"], cmd.Metadata["value"])
	if err != nil {
		log.Println(err)
		return
	}
	if !m.Params.Enqueue(update) {
		log.Printf("parameter queue saturated, dropped %v", cmd.Metadata["name"])
	}
}

// takeDark captures the current integrated frame as the dark
// reference, before gating touches it.
func (m *Manager) takeDark(cmd *message.Cmd) {
	res := m.Slot.Latest()
	if res == nil {
		log.Println("take dark: no frame yet")
		return
	}
	m.Params.Enqueue(data.Update{Param: data.ParamDark, Frame: res.Integrated})
	m.persistRef(cmd, res.Integrated)
}

// takeStatic captures the current equalized frame as the static
// overlay.
func (m *Manager) takeStatic(cmd *message.Cmd) {
	res := m.Slot.Latest()
	if res == nil {
		log.Println("take static: no frame yet")
		return
	}
	m.Params.Enqueue(data.Update{Param: data.ParamStatic, Frame: res.Equalized})
	m.persistRef(cmd, res.Equalized)
}

func (m *Manager) loadRef(cmd *message.Cmd, param data.Param) {
	urlString := cmd.Metadata["url"]
	if urlString == "" {
		return
	}
	frame, err := data.LoadFrame(m.ctx, urlString, cmd.Metadata["credentials"])
	if err != nil {
		log.Println(err)
		return
	}
	m.Params.Enqueue(data.Update{Param: param, Frame: frame})
}

func (m *Manager) saveImage(cmd *message.Cmd) {
	res := m.Slot.Latest()
	if res == nil {
		log.Println("save image: no frame yet")
		return
	}
	m.persistRef(cmd, res.Final)
}

// persistRef writes the frame to the url named in the command, when
// one is given.
func (m *Manager) persistRef(cmd *message.Cmd, frame *scope.Frame) {
	urlString := cmd.Metadata["url"]
	if urlString == "" {
		return
	}
	if err := data.SaveFrame(m.ctx, urlString, cmd.Metadata["credentials"], frame); err != nil {
		log.Println(err)
	}
}

func (m *Manager) pubStatus(*message.Cmd) {
	snap := m.Processor.Snapshot()
	status := &Status{}
	status.SetString("Stream", m.Name)
	status.SetString("Uptime", fmt.Sprintf("%v", time.Since(m.startTime).Truncate(time.Second)))
	status.SetString("Gate", fmt.Sprintf("(%v, %v)", snap.GateLow, snap.GateHigh))
	status.SetString("Integration", fmt.Sprintf("%v x%v", snap.IntegrationEnabled, snap.IntegrationCount))
	status.SetString("Dark Subtraction", fmt.Sprintf("%v %v", snap.SubtractDark, snap.Mode))
	status.SetString("Overlay", fmt.Sprintf("%v %v%%", snap.OverlayEnabled, snap.OverlayOpacity))
	status.SetString("Dropped Updates", strconv.FormatUint(m.Params.Dropped(), 10))
	if m.runFilename != "" {
		status.SetString("Run", m.runFilename)
	}
	for key, value := range m.Metadata {
		status.SetString(key, value)
	}

	msg := &message.Msg{
		Type:     "stream status",
		Metadata: make(map[string]string),
	}
	msg.Metadata["stream"] = m.Name
	for _, key := range status.Keys {
		msg.Metadata[key] = status.StringData[key]
	}
	message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg)
}

func (m *Manager) newShow(cmd *message.Cmd) {
	var show shows.Show
	var period time.Duration

	if v, ok := cmd.Metadata["period"]; ok {
		ns, err := strconv.Atoi(v)
		if err == nil {
			period = time.Duration(ns)
		}
	}
	if period == 0 {
		period = 50 * time.Millisecond
	} else if period < 10*time.Millisecond {
		period = 10 * time.Millisecond
	}

	switch cmd.Metadata["type"] {
	case "Intensity Histogram":
		plot := &shows.IntensityHist{FramePeriod: period}
		plot.InitPlot()
		show = plot
	default:
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	showId := uuid.New()
	idString := showId.String()
	channel := make(chan interface{}, 10000)
	m.showInfo[showId] = ShowInfo{
		Show:          show,
		Cancel:        cancel,
		SampleChannel: channel,
	}

	go func() {
		log.Println("starting show", idString, "frame pusher")
		defer log.Println("stopped show", idString, "frame pusher")
		defer func() {
			msg := &message.Msg{
				Type:     "show close",
				Metadata: make(map[string]string),
			}
			msg.Metadata["stream"] = m.Name
			msg.Metadata["show id"] = idString
			message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg)
		}()

		show.UpdateFrame()

		var lastFrameCount uint64
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			frame, frameCount := show.Frame()
			if frameCount != lastFrameCount {
				frame.Type = "show frame"
				frame.Metadata["show id"] = idString
				frame.Metadata["stream name"] = m.Name
				if err := message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, frame); err != nil {
					log.Println(err)
				}
				time.Sleep(period)
			} else {
				time.Sleep(1 * time.Millisecond)
			}
			lastFrameCount = frameCount
		}
	}()

	go func() {
		log.Println("starting show", idString, "sample getter")
		defer log.Println("stopped show", idString, "sample getter")
		defer close(channel)

		for {
			select {
			case <-ctx.Done():
				return
			case sample := <-channel:
				show.AddSample(sample)
			}
		}
	}()

	cmd.Metadata["show id"] = idString
	cmd.Metadata["show cmd"] = "set params"
	m.showCmd(cmd)
}

func (m *Manager) rmShow(cmd *message.Cmd) {
	if idString, ok := cmd.Metadata["show id"]; ok {
		showId, _ := uuid.Parse(idString)
		if info, ok := m.showInfo[showId]; ok {
			info.Cancel()
			delete(m.showInfo, showId)
		}
	}
}

func (m *Manager) rmAllShows(*message.Cmd) {
	for _, info := range m.showInfo {
		info.Cancel()
	}
	m.showInfo = make(map[uuid.UUID]ShowInfo)
}

func (m *Manager) showCmd(cmd *message.Cmd) {
	if idString, ok := cmd.Metadata["show id"]; ok {
		showId, _ := uuid.Parse(idString)

		cmd.Command = cmd.Metadata["show cmd"]
		if info, ok := m.showInfo[showId]; ok {
			delete(cmd.Metadata, "show id")
			delete(cmd.Metadata, "show cmd")

			e := info.Show.(message.Executer)
			e.Execute(cmd)
		}
	}
}

func (m *Manager) pubAllShows(*message.Cmd) {
	for _, info := range m.showInfo {
		framer := info.Show.(shows.Show)
		framer.UpdateFrameCount()
	}
}

func (m *Manager) startRun(cmd *message.Cmd) {
	urlString := cmd.Metadata["url"] + "/" + data.RunName(time.Now())
	writer, err := data.GetWriter(m.ctx, urlString, cmd.Metadata["credentials"])
	if err != nil {
		log.Println(err)
		return
	}

	thisUrl, err := url.Parse(urlString)
	if err != nil {
		log.Println(err)
		return
	}
	m.runFilename = strings.TrimLeft(thisUrl.Path, "/")

	if m.runChannel != nil {
		m.runChannel <- nil
	}
	m.runChannel = make(chan *proio.Event, 10000)

	log.Printf("starting run %v://%v/%v", thisUrl.Scheme, thisUrl.Host, m.runFilename)

	writer.SetCompression(proio.LZ4)
	delete(cmd.Metadata, "credentials")
	delete(cmd.Metadata, "url")
	for key, value := range cmd.Metadata {
		writer.PushMetadata(key, []byte(value))
	}

	runChannel := m.runChannel
	ctx, cancel := context.WithCancel(m.ctx)
	go func() {
		defer writer.Close()

		go func() {
			start := time.Now()
			for {
				time.Sleep(100 * time.Millisecond)

				select {
				case <-ctx.Done():
					return
				default:
				}

				msg := &message.Msg{
					Type:     "stream status",
					Metadata: make(map[string]string),
				}
				msg.Metadata["stream"] = m.Name
				msg.Metadata["Run Time"] = fmt.Sprintf("%v", time.Since(start).Truncate(100*time.Millisecond))
				message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg)
			}
		}()
		defer cancel()
		defer log.Printf("stopping run %v://%v/%v", thisUrl.Scheme, thisUrl.Host, m.runFilename)

		for event := range runChannel {
			if event == nil {
				return
			}
			if err := writer.Push(event); err != nil {
				log.Println(err)
				return
			}
		}
	}()

	msg := &message.Msg{
		Type:     "stream status",
		Metadata: make(map[string]string),
	}
	msg.Metadata["stream"] = m.Name
	msg.Metadata["Run"] = m.runFilename
	message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg)
}

func (m *Manager) stopRun(*message.Cmd) {
	if m.runChannel != nil {
		m.runChannel <- nil
		m.runChannel = nil
		m.runFilename = ""
	}

	msg := &message.Msg{
		Type:     "stream status",
		Metadata: make(map[string]string),
	}
	msg.Metadata["stream"] = m.Name
	msg.Metadata["Run"] = ""
	message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg)
}
