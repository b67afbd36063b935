package http2

import (
	"errors"
	"fmt"
)

// ErrIncompleteFrame means the buffer does not yet hold a whole frame.
// The reader position is untouched; feed more bytes and retry.
var ErrIncompleteFrame = errors.New("http2: incomplete frame")

// ErrBufferUnderflow means a read ran past the written region of a
// Buffer. Inside the codec this indicates a length bookkeeping bug, not
// wire input.
var ErrBufferUnderflow = errors.New("http2: buffer underflow")

// ProtocolError is a fatal RFC 7540 violation. The connection should be
// torn down with a GOAWAY carrying Code.
type ProtocolError struct {
	Code   ErrCode
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("http2: protocol error (%v): %v", e.Code, e.Reason)
}

func protocolError(code ErrCode, format string, a ...interface{}) error {
	return &ProtocolError{Code: code, Reason: fmt.Sprintf(format, a...)}
}

// UnknownTypeError reports a frame type above 0x9. Not fatal: RFC 7540
// Section 4.1 says unknown types must be ignored, so the frame is
// consumed from the buffer and the caller may simply continue.
type UnknownTypeError struct {
	FrameType uint8
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("http2: unknown frame type 0x%x", e.FrameType)
}

// NoSuchStreamError reports a frame for a stream that was evicted from
// the stream cache. Raised only in strict mode.
type NoSuchStreamError struct {
	StreamID uint32
}

func (e *NoSuchStreamError) Error() string {
	return fmt.Sprintf("http2: no such stream %d", e.StreamID)
}
