package hpack

import (
	"unicode/utf8"
)

// Decoder turns header blocks back into ordered header lists.
// One decoder serves one connection; its dynamic table mirrors the
// peer encoder's table, so blocks must be fed in arrival order.
type Decoder struct {
	table *IndexedTable
}

func NewDecoder(maxDynamicTableSize uint32) *Decoder {
	var d Decoder
	d.table = NewIndexedTable(maxDynamicTableSize)
	return &d
}

// Table exposes the index table, mainly for tests and introspection.
func (d *Decoder) Table() *IndexedTable {
	return d.table
}

// SetMaxDynamicTableSize applies a table-size change announced through
// SETTINGS_HEADER_TABLE_SIZE.
func (d *Decoder) SetMaxDynamicTableSize(maxSize uint32) {
	d.table.Dynamic().SetMaxSize(maxSize)
}

// DecodeFull decodes a complete header block. The caller reassembles
// CONTINUATION fragments first; partial blocks fail with
// ErrTruncatedBlock.
func (d *Decoder) DecodeFull(block []byte) ([]HeaderField, error) {
	fields := make([]HeaderField, 0, 8)
	for len(block) > 0 {
		b := block[0]
		switch {
		case b&0x80 != 0:
			// indexed header field
			f, n, err := d.readIndexed(block)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			block = block[n:]
		case b&0x40 != 0:
			// literal with incremental indexing
			f, n, err := d.readLiteral(block, 6)
			if err != nil {
				return nil, err
			}
			d.table.Dynamic().Insert(f.Name, f.Value)
			fields = append(fields, f)
			block = block[n:]
		case b&0x20 != 0:
			// dynamic table size update
			size, n, err := DecodeInteger(block, 5)
			if err != nil {
				return nil, err
			}
			d.table.Dynamic().SetMaxSize(uint32(size))
			block = block[n:]
		case b&0x10 != 0:
			// literal, never indexed
			f, n, err := d.readLiteral(block, 4)
			if err != nil {
				return nil, err
			}
			f.Sensitive = true
			fields = append(fields, f)
			block = block[n:]
		case b&0xf0 == 0:
			// literal without indexing
			f, n, err := d.readLiteral(block, 4)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			block = block[n:]
		default:
			return nil, invalidRepresentation(b)
		}
	}
	return fields, nil
}

func (d *Decoder) readIndexed(block []byte) (HeaderField, int, error) {
	index, n, err := DecodeInteger(block, 7)
	if err != nil {
		return HeaderField{}, 0, err
	}
	if index == 0 {
		return HeaderField{}, 0, invalidIndexedHeader(index)
	}
	f, ok := d.table.Entry(index)
	if !ok {
		return HeaderField{}, 0, indexOutOfRange(index, d.table.maxIndex())
	}
	if f.Value == "" {
		return HeaderField{}, 0, indexedHeaderWithNoValue(index)
	}
	return f, n, nil
}

func (d *Decoder) readLiteral(block []byte, prefixBits uint8) (HeaderField, int, error) {
	var f HeaderField
	index, n, err := DecodeInteger(block, prefixBits)
	if err != nil {
		return f, 0, err
	}
	if index == 0 {
		f.Name, n, err = readString(block, n)
		if err != nil {
			return f, 0, err
		}
	} else {
		entry, ok := d.table.Entry(index)
		if !ok {
			return f, 0, indexOutOfRange(index, d.table.maxIndex())
		}
		f.Name = entry.Name
	}
	f.Value, n, err = readString(block, n)
	if err != nil {
		return f, 0, err
	}
	return f, n, nil
}

// readString reads a length-prefixed literal string starting at
// block[pos] and returns the string together with the new position.
func readString(block []byte, pos int) (string, int, error) {
	if pos >= len(block) {
		return "", 0, ErrTruncatedBlock
	}
	huffman := block[pos]&0x80 != 0
	length, n, err := DecodeInteger(block[pos:], 7)
	if err != nil {
		return "", 0, err
	}
	pos += n
	if uint64(len(block)-pos) < length {
		return "", 0, ErrTruncatedBlock
	}
	raw := block[pos : pos+int(length)]
	pos += int(length)
	if huffman {
		decoded, err := HuffmanDecode(raw)
		if err != nil {
			return "", 0, err
		}
		return string(decoded), pos, nil
	}
	if !utf8.Valid(raw) {
		return "", 0, ErrInvalidStringEncoding
	}
	return string(raw), pos, nil
}
