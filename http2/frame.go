package http2

import (
	"github.com/vearne/h2wire/hpack"
)

// FramePayload is the tagged payload of one frame. Each variant knows
// its wire type and which flag bits are defined for it; everything
// outside allowedFlags is cleared by the codec.
type FramePayload interface {
	FrameType() uint8
	allowedFlags() uint8
}

// Frame is one HTTP/2 frame: 31-bit stream identifier, 8 flag bits and
// a typed payload.
type Frame struct {
	StreamID uint32
	Flags    uint8
	Payload  FramePayload
}

// EndStream reports END_STREAM for DATA/HEADERS, ACK for
// SETTINGS/PING; the bit is shared.
func (f *Frame) EndStream() bool {
	return f.Flags&FlagEndStream != 0
}

func (f *Frame) EndHeaders() bool {
	return f.Flags&FlagEndHeaders != 0
}

func (f *Frame) Ack() bool {
	return f.Flags&FlagAck != 0
}

type FrameData struct {
	// PadLength is informational after decode; outbound frames are
	// never padded
	PadLength uint8
	Data      []byte
}

func (p *FrameData) FrameType() uint8    { return FrameTypeData }
func (p *FrameData) allowedFlags() uint8 { return FlagEndStream | FlagPadded }

type FrameHeaders struct {
	PadLength uint8
	// priority section, present when FlagPriority is set
	Exclusive bool
	StreamDep uint32
	// wire value; the effective weight is Weight+1
	Weight uint8

	Fields []hpack.HeaderField
}

func (p *FrameHeaders) FrameType() uint8 { return FrameTypeHeaders }
func (p *FrameHeaders) allowedFlags() uint8 {
	return FlagEndStream | FlagEndHeaders | FlagPadded | FlagPriority
}

type FramePriority struct {
	Exclusive bool
	StreamDep uint32
	Weight    uint8
}

func (p *FramePriority) FrameType() uint8    { return FrameTypePriority }
func (p *FramePriority) allowedFlags() uint8 { return 0 }

type FrameRSTStream struct {
	ErrCode ErrCode
}

func (p *FrameRSTStream) FrameType() uint8    { return FrameTypeRSTStream }
func (p *FrameRSTStream) allowedFlags() uint8 { return 0 }

type FrameSettings struct {
	Settings []Setting
}

func (p *FrameSettings) FrameType() uint8    { return FrameTypeSettings }
func (p *FrameSettings) allowedFlags() uint8 { return FlagAck }

type FramePushPromise struct {
	PadLength        uint8
	PromisedStreamID uint32
	Fields           []hpack.HeaderField
}

func (p *FramePushPromise) FrameType() uint8    { return FrameTypePushPromise }
func (p *FramePushPromise) allowedFlags() uint8 { return FlagEndHeaders | FlagPadded }

type FramePing struct {
	Data [8]byte
}

func (p *FramePing) FrameType() uint8    { return FrameTypePing }
func (p *FramePing) allowedFlags() uint8 { return FlagAck }

type FrameGoAway struct {
	LastStreamID uint32
	ErrCode      ErrCode
	DebugData    []byte
}

func (p *FrameGoAway) FrameType() uint8    { return FrameTypeGoAway }
func (p *FrameGoAway) allowedFlags() uint8 { return 0 }

type FrameWindowUpdate struct {
	Increment uint32
}

func (p *FrameWindowUpdate) FrameType() uint8    { return FrameTypeWindowUpdate }
func (p *FrameWindowUpdate) allowedFlags() uint8 { return 0 }

type FrameContinuation struct {
	Fields []hpack.HeaderField
}

func (p *FrameContinuation) FrameType() uint8    { return FrameTypeContinuation }
func (p *FrameContinuation) allowedFlags() uint8 { return FlagEndHeaders }
