package hpack

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeIndexedStatic(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	e.Append(":method", "GET")
	assert.Equal(t, "82", hex.EncodeToString(e.Bytes()))
}

func TestEncodeRequestsWithHuffman(t *testing.T) {
	// mirror of RFC 7541 C.4: literals always leave Huffman-encoded
	e := NewEncoder(DefaultDynamicTableSize)

	e.Append(":method", "GET")
	e.Append(":scheme", "http")
	e.Append(":path", "/")
	e.Append(":authority", "www.example.com")
	assert.Equal(t, "828684418cf1e3c2e5f23a6ba0ab90f4ff", hex.EncodeToString(e.Bytes()))
	assert.Equal(t, uint32(57), e.Table().Dynamic().Size())

	e.Reset()
	e.Append(":method", "GET")
	e.Append(":scheme", "http")
	e.Append(":path", "/")
	e.Append(":authority", "www.example.com")
	e.Append("cache-control", "no-cache")
	assert.Equal(t, "828684be5886a8eb10649cbf", hex.EncodeToString(e.Bytes()))

	e.Reset()
	e.Append(":method", "GET")
	e.Append(":scheme", "https")
	e.Append(":path", "/index.html")
	e.Append(":authority", "www.example.com")
	e.Append("custom-key", "custom-value")
	assert.Equal(t, "828785bf408825a849e95ba97d7f8925a849e95bb8e8b4bf",
		hex.EncodeToString(e.Bytes()))
	assert.Equal(t, 3, e.Table().Dynamic().Len())
	assert.Equal(t, uint32(164), e.Table().Dynamic().Size())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	d := NewDecoder(DefaultDynamicTableSize)

	headers := []HeaderField{
		{Name: ":method", Value: "POST"},
		{Name: ":path", Value: "/submit"},
		{Name: "content-type", Value: "application/json"},
		{Name: "x-request-id", Value: "42f9ae12"},
	}
	for _, h := range headers {
		e.Append(h.Name, h.Value)
	}
	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, headers, fields)

	// second block reuses the now-shared dynamic table state
	e.Reset()
	for _, h := range headers {
		e.Append(h.Name, h.Value)
	}
	assert.True(t, len(e.Bytes()) < 10, "second block should be all indexed")
	fields, err = d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, headers, fields)
}

func TestEncodeNonIndexed(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	d := NewDecoder(DefaultDynamicTableSize)

	e.AppendNonIndexed("x-trace", "abc")
	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, []HeaderField{{Name: "x-trace", Value: "abc"}}, fields)
	assert.Equal(t, 0, e.Table().Dynamic().Len())
	assert.Equal(t, 0, d.Table().Dynamic().Len())
	assert.Equal(t, byte(0x00), e.Bytes()[0]&0xf0)
}

func TestEncodeNeverIndexed(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	d := NewDecoder(DefaultDynamicTableSize)

	e.AppendNeverIndexed("authorization", "Bearer zzz")
	// name index 23 overflows the 4-bit prefix: 0x1f then 8
	assert.Equal(t, byte(0x1f), e.Bytes()[0])
	assert.Equal(t, byte(0x08), e.Bytes()[1])
	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, []HeaderField{
		{Name: "authorization", Value: "Bearer zzz", Sensitive: true}}, fields)
	assert.Equal(t, 0, d.Table().Dynamic().Len())
}

func TestEncodeEmptyValueAvoidsIndexedForm(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	d := NewDecoder(DefaultDynamicTableSize)

	e.Append(":authority", "")
	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, []HeaderField{{Name: ":authority", Value: ""}}, fields)
}

func TestEncodeSizeUpdate(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	d := NewDecoder(DefaultDynamicTableSize)

	e.Append("x-a", "1")
	assert.Equal(t, 1, e.Table().Dynamic().Len())

	e.Reset()
	e.SetMaxDynamicTableSize(0, true)
	assert.Equal(t, 0, e.Table().Dynamic().Len())
	e.SetMaxDynamicTableSize(4096, true)
	e.Append("x-a", "1")

	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, []HeaderField{{Name: "x-a", Value: "1"}}, fields)
	assert.Equal(t, uint32(4096), d.Table().Dynamic().MaxSize())

	// local-only resize emits nothing
	e.Reset()
	e.SetMaxDynamicTableSize(2048, false)
	assert.Equal(t, 0, len(e.Bytes()))
}

func TestEncoderOutputGrowth(t *testing.T) {
	e := NewEncoder(DefaultDynamicTableSize)
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'v'
	}
	e.Append("x-large", string(long))

	d := NewDecoder(DefaultDynamicTableSize)
	fields, err := d.DecodeFull(e.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, string(long), fields[0].Value)
}
