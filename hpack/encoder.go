package hpack

// Encoder emits HPACK header blocks. It owns the dynamic table that
// mirrors the peer decoder's table, so blocks produced by one encoder
// must reach the peer in emit order. The output buffer is reused across
// blocks; the dynamic table deliberately is not reset between blocks.
type Encoder struct {
	table   *IndexedTable
	huffman *HuffmanEncoder
	buf     []byte
}

const encoderBufSize = 128

func NewEncoder(maxDynamicTableSize uint32) *Encoder {
	var e Encoder
	e.table = NewIndexedTable(maxDynamicTableSize)
	e.huffman = NewHuffmanEncoder()
	e.buf = make([]byte, 0, encoderBufSize)
	return &e
}

// Table exposes the index table, mainly for tests and introspection.
func (e *Encoder) Table() *IndexedTable {
	return e.table
}

// Bytes returns the header block accumulated since the last Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Reset clears the output buffer. Dynamic table state persists.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Append encodes one header field with the best available
// representation: full index match, literal with indexed name, or full
// literal. The literal forms insert the field into the dynamic table.
func (e *Encoder) Append(name, value string) {
	index, exact := e.table.FirstMatch(name, value)
	// the indexed form is reserved for fields that really carry a value:
	// decoders reject an index that resolves to a name-only entry
	if exact && value != "" {
		e.buf = AppendInteger(e.buf, 0x80, 7, index)
		return
	}
	e.buf = AppendInteger(e.buf, 0x40, 6, index)
	if index == 0 {
		e.appendString(name)
	}
	e.appendString(value)
	e.table.Dynamic().Insert(name, value)
}

// AppendNonIndexed encodes a literal that must not enter the dynamic
// table (RFC 7541 Section 6.2.2).
func (e *Encoder) AppendNonIndexed(name, value string) {
	e.appendPlainLiteral(0x00, name, value)
}

// AppendNeverIndexed encodes a literal that intermediaries must also
// never index (RFC 7541 Section 6.2.3).
func (e *Encoder) AppendNeverIndexed(name, value string) {
	e.appendPlainLiteral(0x10, name, value)
}

func (e *Encoder) appendPlainLiteral(pattern byte, name, value string) {
	index, _ := e.table.FirstMatch(name, "")
	e.buf = AppendInteger(e.buf, pattern, 4, index)
	if index == 0 {
		e.appendString(name)
	}
	e.appendString(value)
}

// SetMaxDynamicTableSize resizes the local table. With sendUpdate the
// change is also announced in-band as a dynamic table size update, which
// belongs at the head of the next block.
func (e *Encoder) SetMaxDynamicTableSize(maxSize uint32, sendUpdate bool) {
	e.table.Dynamic().SetMaxSize(maxSize)
	if sendUpdate {
		e.buf = AppendInteger(e.buf, 0x20, 5, uint64(maxSize))
	}
}

// Literal strings always go out Huffman-encoded.
func (e *Encoder) appendString(s string) {
	encoded := e.huffman.Encode([]byte(s))
	e.buf = AppendInteger(e.buf, 0x80, 7, uint64(len(encoded)))
	e.buf = append(e.buf, encoded...)
}
