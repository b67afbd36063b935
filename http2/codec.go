package http2

import (
	"github.com/vearne/h2wire/hpack"
	slog "github.com/vearne/simplelog"
)

const (
	// DefaultMaxStreams bounds the stream cache of one codec.
	DefaultMaxStreams = 1000
)

// FrameCodec serializes and parses HTTP/2 frames for one connection.
// HPACK state lives here, connection-wide, as RFC 7541 Section 2.2
// requires: one encoder table for the frames this side emits and one
// decoder table for the frames it receives. The codec is not safe for
// concurrent use; a connection is handled by one goroutine.
type FrameCodec struct {
	headerEncoder *hpack.Encoder
	headerDecoder *hpack.Decoder
	streams       *streamCache
	// report NoSuchStreamError for frames on evicted streams
	strictStreams bool
}

func NewFrameCodec(maxDynamicTableSize uint32, maxStreams int) *FrameCodec {
	var c FrameCodec
	c.headerEncoder = hpack.NewEncoder(maxDynamicTableSize)
	c.headerDecoder = hpack.NewDecoder(maxDynamicTableSize)
	c.streams = newStreamCache(maxStreams)
	return &c
}

// SetStrictStreams makes frames on evicted streams fatal.
func (c *FrameCodec) SetStrictStreams(strict bool) {
	c.strictStreams = strict
}

// ApplyHeaderTableSize resizes the outbound HPACK table after the peer
// announced SETTINGS_HEADER_TABLE_SIZE. The change is emitted in-band
// at the head of the next header block.
func (c *FrameCodec) ApplyHeaderTableSize(size uint32) {
	slog.Debug("adjust header table size:%v", size)
	c.headerEncoder.SetMaxDynamicTableSize(size, true)
}

// HeaderDecoder exposes the inbound HPACK half, mainly so an enclosing
// pipeline can apply its own SETTINGS to it.
func (c *FrameCodec) HeaderDecoder() *hpack.Decoder {
	return c.headerDecoder
}

// Decode parses one frame from buf. On ErrIncompleteFrame the reader
// position is unchanged so the caller can retry once more bytes
// arrived. Unknown frame types are consumed and reported with
// UnknownTypeError; the caller may skip them per RFC 7540 Section 4.1.
func (c *FrameCodec) Decode(buf *Buffer) (*Frame, error) {
	mark := buf.ReaderIndex()
	if buf.ReadableBytes() < HeaderSize {
		return nil, ErrIncompleteFrame
	}
	length, _ := buf.ReadUint24()
	frameType, _ := buf.ReadUint8()
	flags, _ := buf.ReadUint8()
	rawStreamID, _ := buf.ReadUint32()
	// the reserved high bit is ignored on read
	streamID := rawStreamID & StreamIDMax

	if buf.ReadableBytes() < int(length) {
		buf.SetReaderIndex(mark)
		return nil, ErrIncompleteFrame
	}
	payload, _ := buf.ReadSlice(int(length))

	if frameType > FrameTypeContinuation {
		return nil, &UnknownTypeError{FrameType: frameType}
	}

	slog.Debug("decode frame, FrameType:%v, streamID:%v, flags:0x%x, length:%v",
		GetFrameType(frameType), streamID, flags, length)

	_, evicted := c.streams.touch(streamID)
	if evicted && c.strictStreams {
		return nil, &NoSuchStreamError{StreamID: streamID}
	}

	var p FramePayload
	var err error
	switch frameType {
	case FrameTypeData:
		p, err = decodeData(flags, streamID, payload)
	case FrameTypeHeaders:
		p, err = c.decodeHeaders(flags, streamID, payload)
	case FrameTypePriority:
		p, err = decodePriority(streamID, payload)
	case FrameTypeRSTStream:
		p, err = decodeRSTStream(streamID, payload)
	case FrameTypeSettings:
		p, err = decodeSettings(flags, streamID, payload)
	case FrameTypePushPromise:
		p, err = c.decodePushPromise(flags, streamID, payload)
	case FrameTypePing:
		p, err = decodePing(streamID, payload)
	case FrameTypeGoAway:
		p, err = decodeGoAway(streamID, payload)
	case FrameTypeWindowUpdate:
		p, err = decodeWindowUpdate(payload)
	case FrameTypeContinuation:
		p, err = c.decodeContinuation(streamID, payload)
	}
	if err != nil {
		return nil, err
	}

	f := &Frame{StreamID: streamID, Flags: flags & p.allowedFlags(), Payload: p}
	c.noteClosed(f)
	return f, nil
}

// Encode serializes f into out. For DATA and GOAWAY the byte-heavy part
// (body, debug data) is NOT copied into out: it is returned and the
// caller appends it after the header, so a file region or pre-owned
// buffer can be sent without an extra copy. The back-filled length
// already accounts for it.
func (c *FrameCodec) Encode(f *Frame, out *Buffer) ([]byte, error) {
	p := f.Payload
	flags := f.Flags & p.allowedFlags()
	// outbound frames are never padded
	flags &^= FlagPadded

	start := out.Len()
	out.WriteUint24(0)
	out.WriteUint8(p.FrameType())
	out.WriteUint8(flags)
	// the reserved high bit always goes out as 0
	out.WriteUint32(f.StreamID & StreamIDMax)
	payloadStart := out.Len()

	var extra []byte
	var err error
	switch p := p.(type) {
	case *FrameData:
		extra, err = encodeData(f.StreamID, p)
	case *FrameHeaders:
		err = c.encodeHeaders(out, flags, f.StreamID, p)
	case *FramePriority:
		err = encodePriority(out, f.StreamID, p)
	case *FrameRSTStream:
		err = encodeRSTStream(out, f.StreamID, p)
	case *FrameSettings:
		err = encodeSettings(out, flags, f.StreamID, p)
	case *FramePushPromise:
		err = c.encodePushPromise(out, f.StreamID, p)
	case *FramePing:
		err = encodePing(out, f.StreamID, p)
	case *FrameGoAway:
		extra, err = encodeGoAway(out, f.StreamID, p)
	case *FrameWindowUpdate:
		err = encodeWindowUpdate(out, p)
	case *FrameContinuation:
		err = c.encodeContinuation(out, f.StreamID, p)
	default:
		err = protocolError(ErrCodeInternal, "unhandled payload type %T", p)
	}
	if err != nil {
		out.Truncate(start)
		return nil, err
	}

	out.SetUint24(start, uint32(out.Len()-payloadStart+len(extra)))
	c.streams.touch(f.StreamID)
	c.noteClosed(f)
	return extra, nil
}

// noteClosed updates stream activity from the frames that end a stream.
func (c *FrameCodec) noteClosed(f *Frame) {
	switch f.Payload.(type) {
	case *FrameData, *FrameHeaders:
		if f.EndStream() {
			c.streams.markClosed(f.StreamID)
		}
	case *FrameRSTStream:
		c.streams.markClosed(f.StreamID)
	}
}

// ###### per-type decoders ######

// splitPadding strips the optional pad-length prefix and trailing
// padding shared by DATA, HEADERS and PUSH_PROMISE.
func splitPadding(flags uint8, payload []byte) (padLength uint8, rest []byte, err error) {
	if flags&FlagPadded == 0 {
		return 0, payload, nil
	}
	if len(payload) < 1 {
		return 0, nil, protocolError(ErrCodeProtocol, "padded frame without pad length")
	}
	padLength = payload[0]
	rest = payload[1:]
	if int(padLength) > len(rest) {
		return 0, nil, protocolError(ErrCodeProtocol,
			"pad length %d exceeds remaining payload %d", padLength, len(rest))
	}
	return padLength, rest[:len(rest)-int(padLength)], nil
}

func decodeData(flags uint8, streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "DATA on stream 0")
	}
	padLength, data, err := splitPadding(flags, payload)
	if err != nil {
		return nil, err
	}
	return &FrameData{PadLength: padLength, Data: data}, nil
}

func (c *FrameCodec) decodeHeaders(flags uint8, streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "HEADERS on stream 0")
	}
	var p FrameHeaders
	padLength, rest, err := splitPadding(flags, payload)
	if err != nil {
		return nil, err
	}
	p.PadLength = padLength
	if flags&FlagPriority != 0 {
		if len(rest) < 5 {
			return nil, protocolError(ErrCodeFrameSize, "HEADERS priority section truncated")
		}
		dep := uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
		p.Exclusive = dep&(1<<31) != 0
		p.StreamDep = dep & StreamIDMax
		p.Weight = rest[4]
		rest = rest[5:]
	}
	p.Fields, err = c.headerDecoder.DecodeFull(rest)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func decodePriority(streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "PRIORITY on stream 0")
	}
	if len(payload) != 5 {
		return nil, protocolError(ErrCodeFrameSize, "PRIORITY length %d, want 5", len(payload))
	}
	dep := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	return &FramePriority{
		Exclusive: dep&(1<<31) != 0,
		StreamDep: dep & StreamIDMax,
		Weight:    payload[4],
	}, nil
}

func decodeRSTStream(streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "RST_STREAM on stream 0")
	}
	if len(payload) != 4 {
		return nil, protocolError(ErrCodeFrameSize, "RST_STREAM length %d, want 4", len(payload))
	}
	code := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	return &FrameRSTStream{ErrCode: ErrCode(code)}, nil
}

func decodeSettings(flags uint8, streamID uint32, payload []byte) (FramePayload, error) {
	if streamID != StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "SETTINGS on stream %d", streamID)
	}
	if flags&FlagAck != 0 {
		if len(payload) != 0 {
			return nil, protocolError(ErrCodeFrameSize,
				"SETTINGS ack with %d payload bytes", len(payload))
		}
		return &FrameSettings{}, nil
	}
	if len(payload)%6 != 0 {
		return nil, protocolError(ErrCodeFrameSize,
			"SETTINGS length %d not a multiple of 6", len(payload))
	}
	var p FrameSettings
	for off := 0; off < len(payload); off += 6 {
		s := Setting{
			ID: SettingID(uint16(payload[off])<<8 | uint16(payload[off+1])),
			Val: uint32(payload[off+2])<<24 | uint32(payload[off+3])<<16 |
				uint32(payload[off+4])<<8 | uint32(payload[off+5]),
		}
		if !knownSetting(s.ID) {
			slog.Debug("ignore:%v", s.ID)
			continue
		}
		if err := s.Valid(); err != nil {
			return nil, err
		}
		p.Settings = append(p.Settings, s)
	}
	return &p, nil
}

func (c *FrameCodec) decodePushPromise(flags uint8, streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "PUSH_PROMISE on stream 0")
	}
	var p FramePushPromise
	padLength, rest, err := splitPadding(flags, payload)
	if err != nil {
		return nil, err
	}
	p.PadLength = padLength
	if len(rest) < 4 {
		return nil, protocolError(ErrCodeFrameSize, "PUSH_PROMISE length %d, want >= 4", len(rest))
	}
	promised := uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
	p.PromisedStreamID = promised & StreamIDMax
	if p.PromisedStreamID == 0 || p.PromisedStreamID <= streamID {
		return nil, protocolError(ErrCodeProtocol,
			"promised stream %d not above stream %d", p.PromisedStreamID, streamID)
	}
	p.Fields, err = c.headerDecoder.DecodeFull(rest[4:])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func decodePing(streamID uint32, payload []byte) (FramePayload, error) {
	if streamID != StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "PING on stream %d", streamID)
	}
	if len(payload) != 8 {
		return nil, protocolError(ErrCodeFrameSize, "PING length %d, want 8", len(payload))
	}
	var p FramePing
	copy(p.Data[:], payload)
	return &p, nil
}

func decodeGoAway(streamID uint32, payload []byte) (FramePayload, error) {
	if streamID != StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "GOAWAY on stream %d", streamID)
	}
	if len(payload) < 8 {
		return nil, protocolError(ErrCodeFrameSize, "GOAWAY length %d, want >= 8", len(payload))
	}
	last := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	code := uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7])
	return &FrameGoAway{
		LastStreamID: last & StreamIDMax,
		ErrCode:      ErrCode(code),
		DebugData:    payload[8:],
	}, nil
}

func decodeWindowUpdate(payload []byte) (FramePayload, error) {
	// legal on stream 0 (connection window) and on any stream
	if len(payload) != 4 {
		return nil, protocolError(ErrCodeFrameSize, "WINDOW_UPDATE length %d, want 4", len(payload))
	}
	inc := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	inc &= StreamIDMax
	if inc == 0 {
		return nil, protocolError(ErrCodeProtocol, "WINDOW_UPDATE with zero increment")
	}
	return &FrameWindowUpdate{Increment: inc}, nil
}

func (c *FrameCodec) decodeContinuation(streamID uint32, payload []byte) (FramePayload, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "CONTINUATION on stream 0")
	}
	fields, err := c.headerDecoder.DecodeFull(payload)
	if err != nil {
		return nil, err
	}
	return &FrameContinuation{Fields: fields}, nil
}

// ###### per-type encoders ######

func encodeData(streamID uint32, p *FrameData) ([]byte, error) {
	if streamID == StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "DATA on stream 0")
	}
	return p.Data, nil
}

func (c *FrameCodec) encodeHeaders(out *Buffer, flags uint8, streamID uint32, p *FrameHeaders) error {
	if streamID == StreamIDRoot {
		return protocolError(ErrCodeProtocol, "HEADERS on stream 0")
	}
	if flags&FlagPriority != 0 {
		writeStreamDep(out, p.Exclusive, p.StreamDep)
		out.WriteUint8(p.Weight)
	}
	c.appendHeaderBlock(out, p.Fields)
	return nil
}

func encodePriority(out *Buffer, streamID uint32, p *FramePriority) error {
	if streamID == StreamIDRoot {
		return protocolError(ErrCodeProtocol, "PRIORITY on stream 0")
	}
	writeStreamDep(out, p.Exclusive, p.StreamDep)
	out.WriteUint8(p.Weight)
	return nil
}

func encodeRSTStream(out *Buffer, streamID uint32, p *FrameRSTStream) error {
	if streamID == StreamIDRoot {
		return protocolError(ErrCodeProtocol, "RST_STREAM on stream 0")
	}
	out.WriteUint32(uint32(p.ErrCode))
	return nil
}

func encodeSettings(out *Buffer, flags uint8, streamID uint32, p *FrameSettings) error {
	if streamID != StreamIDRoot {
		return protocolError(ErrCodeProtocol, "SETTINGS on stream %d", streamID)
	}
	if flags&FlagAck != 0 && len(p.Settings) > 0 {
		return protocolError(ErrCodeFrameSize, "SETTINGS ack carries settings")
	}
	for _, s := range p.Settings {
		if err := s.Valid(); err != nil {
			return err
		}
		out.WriteUint16(uint16(s.ID))
		out.WriteUint32(s.Val)
	}
	return nil
}

func (c *FrameCodec) encodePushPromise(out *Buffer, streamID uint32, p *FramePushPromise) error {
	if streamID == StreamIDRoot {
		return protocolError(ErrCodeProtocol, "PUSH_PROMISE on stream 0")
	}
	if p.PromisedStreamID == 0 || p.PromisedStreamID <= streamID {
		return protocolError(ErrCodeProtocol,
			"promised stream %d not above stream %d", p.PromisedStreamID, streamID)
	}
	out.WriteUint32(p.PromisedStreamID & StreamIDMax)
	c.appendHeaderBlock(out, p.Fields)
	return nil
}

func encodePing(out *Buffer, streamID uint32, p *FramePing) error {
	if streamID != StreamIDRoot {
		return protocolError(ErrCodeProtocol, "PING on stream %d", streamID)
	}
	out.WriteBytes(p.Data[:])
	return nil
}

func encodeGoAway(out *Buffer, streamID uint32, p *FrameGoAway) ([]byte, error) {
	if streamID != StreamIDRoot {
		return nil, protocolError(ErrCodeProtocol, "GOAWAY on stream %d", streamID)
	}
	out.WriteUint32(p.LastStreamID & StreamIDMax)
	out.WriteUint32(uint32(p.ErrCode))
	return p.DebugData, nil
}

func encodeWindowUpdate(out *Buffer, p *FrameWindowUpdate) error {
	if p.Increment == 0 || p.Increment > StreamIDMax {
		return protocolError(ErrCodeProtocol, "bad WINDOW_UPDATE increment %d", p.Increment)
	}
	out.WriteUint32(p.Increment)
	return nil
}

func (c *FrameCodec) encodeContinuation(out *Buffer, streamID uint32, p *FrameContinuation) error {
	if streamID == StreamIDRoot {
		return protocolError(ErrCodeProtocol, "CONTINUATION on stream 0")
	}
	c.appendHeaderBlock(out, p.Fields)
	return nil
}

func (c *FrameCodec) appendHeaderBlock(out *Buffer, fields []hpack.HeaderField) {
	// a pending size update from ApplyHeaderTableSize leads the block
	for _, f := range fields {
		if f.Sensitive {
			c.headerEncoder.AppendNeverIndexed(f.Name, f.Value)
		} else {
			c.headerEncoder.Append(f.Name, f.Value)
		}
	}
	out.WriteBytes(c.headerEncoder.Bytes())
	c.headerEncoder.Reset()
}

func writeStreamDep(out *Buffer, exclusive bool, dep uint32) {
	v := dep & StreamIDMax
	if exclusive {
		v |= 1 << 31
	}
	out.WriteUint32(v)
}
