package hpack

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIntegerEncoding means a prefixed integer ran past the
	// 10-continuation-byte guard.
	ErrInvalidIntegerEncoding = errors.New("hpack: invalid integer encoding")
	// ErrInvalidHuffmanEncoding means the bit stream left the decode table
	// or ended in a non-accepting state.
	ErrInvalidHuffmanEncoding = errors.New("hpack: invalid huffman encoding")
	// ErrInvalidStringEncoding means a decoded literal is not valid UTF-8.
	ErrInvalidStringEncoding = errors.New("hpack: string is not valid UTF-8")
	// ErrTruncatedBlock means the header block ended inside a prefixed
	// integer, or a literal string announced more bytes than the block
	// still holds.
	ErrTruncatedBlock = errors.New("hpack: truncated header block")
	// ErrInvalidRepresentation means the first byte of a header field
	// representation matches none of the RFC 7541 §6 patterns.
	ErrInvalidRepresentation = errors.New("hpack: invalid representation")
	// ErrInvalidIndexedHeader means an indexed header field used index 0.
	ErrInvalidIndexedHeader = errors.New("hpack: indexed header field with index 0")
	// ErrIndexedHeaderWithNoValue means an indexed header field referenced a
	// table entry that only carries a name.
	ErrIndexedHeaderWithNoValue = errors.New("hpack: indexed header field has no value")
	// ErrIndexOutOfRange means an index points past the end of the
	// static+dynamic table.
	ErrIndexOutOfRange = errors.New("hpack: index out of range")
)

func invalidIndexedHeader(index uint64) error {
	return fmt.Errorf("%w (index:%d)", ErrInvalidIndexedHeader, index)
}

func indexedHeaderWithNoValue(index uint64) error {
	return fmt.Errorf("%w (index:%d)", ErrIndexedHeaderWithNoValue, index)
}

func indexOutOfRange(need uint64, have int) error {
	return fmt.Errorf("%w (need:%d, have:%d)", ErrIndexOutOfRange, need, have)
}

func invalidRepresentation(b byte) error {
	return fmt.Errorf("%w (first byte:0x%02x)", ErrInvalidRepresentation, b)
}
