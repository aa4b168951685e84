// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

// Package scope holds the wire model for frames moving through the
// pipeline. The messages are kept in sync with scope.proto by hand;
// the struct tags are what the protobuf runtime marshals from.
package scope

import (
	"github.com/golang/protobuf/proto"
)

type Frame struct {
	Width     uint32   `protobuf:"varint,1,opt,name=width" json:"width,omitempty"`
	Height    uint32   `protobuf:"varint,2,opt,name=height" json:"height,omitempty"`
	Depth     uint32   `protobuf:"varint,3,opt,name=depth" json:"depth,omitempty"`
	Channels  uint32   `protobuf:"varint,4,opt,name=channels" json:"channels,omitempty"`
	Timestamp uint64   `protobuf:"varint,5,opt,name=timestamp" json:"timestamp,omitempty"`
	Pix       []uint64 `protobuf:"varint,6,rep,packed,name=pix" json:"pix,omitempty"`
}

func (m *Frame) Reset()         { *m = Frame{} }
func (m *Frame) String() string { return proto.CompactTextString(m) }
func (*Frame) ProtoMessage()    {}

type Temp struct {
	Board []float32 `protobuf:"fixed32,1,rep,packed,name=board" json:"board,omitempty"`
}

func (m *Temp) Reset()         { *m = Temp{} }
func (m *Temp) String() string { return proto.CompactTextString(m) }
func (*Temp) ProtoMessage()    {}

func init() {
	proto.RegisterType((*Frame)(nil), "scope.Frame")
	proto.RegisterType((*Temp)(nil), "scope.Temp")
}
