package dump

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	slog "github.com/vearne/simplelog"
)

func segment(seq uint32, payload string) *layers.TCP {
	var tcpPkg layers.TCP
	tcpPkg.Seq = seq
	tcpPkg.Payload = []byte(payload)
	return &tcpPkg
}

func TestSegmentBufferSequence(t *testing.T) {
	slog.SetLevel(slog.DebugLevel)
	buffer := NewSegmentBuffer()
	buffer.SetExpectedSeq(1000)

	buffer.AddTCP(segment(1000, "aaaaaaaaaa"))
	buffer.AddTCP(segment(1020, "cccccccccc"))
	assert.Equal(t, 10, buffer.Ready())
	assert.Equal(t, 1, buffer.Pending())

	buffer.AddTCP(segment(1010, "bbbbbbbbbb"))
	assert.Equal(t, 30, buffer.Ready())
	assert.Equal(t, 0, buffer.Pending())
	assert.Equal(t, "aaaaaaaaaabbbbbbbbbbcccccccccc", string(buffer.Drain()))
	assert.Equal(t, 0, buffer.Ready())
}

func TestSegmentBufferReverseOrder(t *testing.T) {
	slog.SetLevel(slog.DebugLevel)
	buffer := NewSegmentBuffer()
	buffer.SetExpectedSeq(1000)

	buffer.AddTCP(segment(1020, "cccccccccc"))
	buffer.AddTCP(segment(1010, "bbbbbbbbbb"))
	buffer.AddTCP(segment(1000, "aaaaaaaaaa"))
	buffer.AddTCP(segment(1030, "dddddddddd"))

	assert.Equal(t, "aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd", string(buffer.Drain()))
}

func TestSegmentBufferDuplicateAndStale(t *testing.T) {
	buffer := NewSegmentBuffer()
	buffer.SetExpectedSeq(1000)

	buffer.AddTCP(segment(1000, "aaaaaaaaaa"))
	// retransmission of consumed data falls outside the window
	buffer.AddTCP(segment(1000, "aaaaaaaaaa"))
	buffer.AddTCP(segment(1020, "cccccccccc"))
	// duplicate of a waiting segment
	buffer.AddTCP(segment(1020, "cccccccccc"))
	buffer.AddTCP(segment(1010, "bbbbbbbbbb"))

	assert.Equal(t, "aaaaaaaaaabbbbbbbbbbcccccccccc", string(buffer.Drain()))
}

func TestSegmentBufferWrapAround(t *testing.T) {
	slog.SetLevel(slog.DebugLevel)
	buffer := NewSegmentBuffer()
	buffer.SetExpectedSeq(4294967290)

	buffer.AddTCP(segment(4294967290, "aaaaaaaaaa"))
	buffer.AddTCP(segment(14, "cccccccccc"))
	buffer.AddTCP(segment(4, "bbbbbbbbbb"))

	assert.Equal(t, "aaaaaaaaaabbbbbbbbbbcccccccccc", string(buffer.Drain()))
}

func TestSegmentBufferSyncsOnFirstSegment(t *testing.T) {
	// capture without the handshake: the stream starts mid-flight
	buffer := NewSegmentBuffer()
	buffer.AddTCP(segment(5000, "hello "))
	buffer.AddTCP(segment(5006, "world"))
	assert.Equal(t, "hello world", string(buffer.Drain()))
}

func TestValidPackage(t *testing.T) {
	testCases := []struct {
		expectedSeq   uint32
		maxWindowSize uint32
		pkgSeq        uint32
		expected      bool
	}{
		// wrap-around window
		{4294966995, 10000, 4294967095, true},
		{4294966995, 10000, 9500, true},
		{4294966995, 10000, 4294946995, false},
		// plain window
		{10000, 10000, 10200, true},
		{10000, 10000, 3000, false},
		{10000, 10000, 20300, false},
	}
	for _, testCase := range testCases {
		actual := validPackage(testCase.expectedSeq, testCase.maxWindowSize, testCase.pkgSeq)
		assert.Equal(t, testCase.expected, actual, "Not consistent with expectations")
	}
}
