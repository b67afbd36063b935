package http2

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vearne/h2wire/hpack"
)

// encodeAppend runs Encode and appends the externally-owned part the
// way a transport would, so the buffer holds the full wire image.
func encodeAppend(t *testing.T, c *FrameCodec, f *Frame, out *Buffer) {
	extra, err := c.Encode(f, out)
	assert.Nil(t, err)
	out.WriteBytes(extra)
}

func TestEncodePingVector(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	out := NewBuffer(32)
	f := &Frame{
		StreamID: 0,
		Payload:  &FramePing{Data: [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}},
	}
	encodeAppend(t, c, f, out)
	assert.Equal(t, "0000080600000000000123456789abcdef", hex.EncodeToString(out.Bytes()))

	decoded, err := c.Decode(out)
	assert.Nil(t, err)
	assert.Equal(t, f, decoded)
}

func TestEncodeSettingsAckVector(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	out := NewBuffer(16)
	f := &Frame{StreamID: 0, Flags: FlagAck, Payload: &FrameSettings{}}
	encodeAppend(t, c, f, out)
	assert.Equal(t, "000000040100000000", hex.EncodeToString(out.Bytes()))

	decoded, err := c.Decode(out)
	assert.Nil(t, err)
	assert.Equal(t, f, decoded)
	assert.True(t, decoded.Ack())
}

func TestRoundTripAllFrameTypes(t *testing.T) {
	enc := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	dec := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	frames := []*Frame{
		{StreamID: 1, Flags: FlagEndStream, Payload: &FrameData{Data: []byte("hello")}},
		{StreamID: 1, Flags: FlagEndHeaders, Payload: &FrameHeaders{
			Fields: []hpack.HeaderField{
				{Name: ":method", Value: "GET"},
				{Name: ":path", Value: "/index.html"},
				{Name: "user-agent", Value: "h2wire-test"},
			}}},
		{StreamID: 3, Payload: &FramePriority{Exclusive: true, StreamDep: 1, Weight: 200}},
		{StreamID: 3, Payload: &FrameRSTStream{ErrCode: ErrCodeCancel}},
		{StreamID: 0, Payload: &FrameSettings{Settings: []Setting{
			{ID: SettingHeaderTableSize, Val: 8192},
			{ID: SettingMaxFrameSize, Val: 1 << 20},
		}}},
		{StreamID: 5, Flags: FlagEndHeaders, Payload: &FramePushPromise{
			PromisedStreamID: 6,
			Fields:           []hpack.HeaderField{{Name: ":method", Value: "GET"}}}},
		{StreamID: 0, Flags: FlagAck, Payload: &FramePing{Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}},
		{StreamID: 0, Payload: &FrameGoAway{
			LastStreamID: 5, ErrCode: ErrCodeProtocol, DebugData: []byte("boom")}},
		{StreamID: 0, Payload: &FrameWindowUpdate{Increment: 65535}},
		{StreamID: 5, Flags: FlagEndHeaders, Payload: &FrameContinuation{
			Fields: []hpack.HeaderField{{Name: "x-tail", Value: "1"}}}},
	}

	out := NewBuffer(256)
	for _, f := range frames {
		encodeAppend(t, enc, f, out)
	}
	for _, f := range frames {
		decoded, err := dec.Decode(out)
		assert.Nil(t, err)
		assert.Equal(t, f, decoded, GetFrameType(f.Payload.FrameType()))
	}
	assert.Equal(t, 0, out.ReadableBytes())
}

func TestDecodeFlagMasking(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	// DATA on stream 1, flags 0xf1: only END_STREAM is defined here
	// (0xf0 are unknown bits, PADDED deliberately clear)
	raw, _ := hex.DecodeString("000002" + "00" + "f1" + "00000001" + "6869")
	f, err := c.Decode(WrapBuffer(raw))
	assert.Nil(t, err)
	assert.Equal(t, FlagEndStream, f.Flags)
	assert.Equal(t, []byte("hi"), f.Payload.(*FrameData).Data)
}

func TestDecodeReservedBitIgnored(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	// stream id 0x80000001: reserved high bit set, must read as 1
	raw, _ := hex.DecodeString("000000" + "03" + "00" + "80000001")
	raw = append(raw, 0, 0, 0, 8)
	raw[2] = 4 // RST_STREAM wants 4 payload bytes
	f, err := c.Decode(WrapBuffer(raw))
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), f.StreamID)
	assert.Equal(t, ErrCodeCancel, f.Payload.(*FrameRSTStream).ErrCode)
}

func TestDecodeHeadersWithPaddingAndPriority(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	flags := FlagEndHeaders | FlagPadded | FlagPriority
	payload := []byte{
		0x02,                   // pad length
		0x80, 0x00, 0x00, 0x03, // exclusive dep on stream 3
		0x0f, // weight
		0x82, // :method: GET
		0x00, 0x00,
	}
	raw := []byte{0x00, 0x00, byte(len(payload)), FrameTypeHeaders, flags, 0x00, 0x00, 0x00, 0x05}
	raw = append(raw, payload...)

	f, err := c.Decode(WrapBuffer(raw))
	assert.Nil(t, err)
	p := f.Payload.(*FrameHeaders)
	assert.Equal(t, uint8(2), p.PadLength)
	assert.True(t, p.Exclusive)
	assert.Equal(t, uint32(3), p.StreamDep)
	assert.Equal(t, uint8(0x0f), p.Weight)
	assert.Equal(t, []hpack.HeaderField{{Name: ":method", Value: "GET"}}, p.Fields)
	assert.Equal(t, flags, f.Flags)
}

func TestDecodePaddedData(t *testing.T) {
	c := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	raw, _ := hex.DecodeString("000006" + "00" + "08" + "00000001" + "03" + "6869" + "000000")
	f, err := c.Decode(WrapBuffer(raw))
	assert.Nil(t, err)
	p := f.Payload.(*FrameData)
	assert.Equal(t, uint8(3), p.PadLength)
	assert.Equal(t, []byte("hi"), p.Data)
}

func TestHeaderBlockStatePersistsAcrossFrames(t *testing.T) {
	enc := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	dec := NewFrameCodec(hpack.DefaultDynamicTableSize, DefaultMaxStreams)
	fields := []hpack.HeaderField{
		{Name: ":authority", Value: "www.example.com"},
		{Name: "x-session", Value: "deadbeef"},
	}
	out := NewBuffer(256)
	first := &Frame{StreamID: 1, Flags: FlagEndHeaders, Payload: &FrameHeaders{Fields: fields}}
	second := &Frame{StreamID: 3, Flags: FlagEndHeaders, Payload: &FrameHeaders{Fields: fields}}
	encodeAppend(t, enc, first, out)
	firstLen := out.Len()
	encodeAppend(t, enc, second, out)
	secondLen := out.Len() - firstLen
	assert.True(t, secondLen < firstLen, "second block must hit the dynamic table")

	for _, want := range []*Frame{first, second} {
		decoded, err := dec.Decode(out)
		assert.Nil(t, err)
		assert.Equal(t, want, decoded)
	}
}
