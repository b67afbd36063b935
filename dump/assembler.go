package dump

import (
	"bytes"

	"github.com/google/gopacket/layers"
	"github.com/huandu/skiplist"
	slog "github.com/vearne/simplelog"
)

const MaxWindowSize = 65536

// SegmentBuffer puts captured TCP segments back into stream order.
// Out-of-order segments wait on a skiplist keyed by sequence number;
// whenever the expected segment shows up, it and every directly
// following one move into the in-order buffer. Offline replay needs no
// blocking reads, so draining is synchronous.
type SegmentBuffer struct {
	list        *skiplist.SkipList
	expectedSeq uint32
	seqKnown    bool
	buffer      *bytes.Buffer
}

func NewSegmentBuffer() *SegmentBuffer {
	var sb SegmentBuffer
	sb.list = skiplist.New(skiplist.Uint32)
	sb.buffer = bytes.NewBuffer([]byte{})
	return &sb
}

// SetExpectedSeq pins the first payload sequence number, normally from
// the SYN of the captured handshake.
func (sb *SegmentBuffer) SetExpectedSeq(expectedSeq uint32) {
	sb.expectedSeq = expectedSeq
	sb.seqKnown = true
}

// AddTCP feeds one captured segment.
func (sb *SegmentBuffer) AddTCP(tcpPkg *layers.TCP) {
	if len(tcpPkg.Payload) == 0 {
		return
	}
	// a capture that missed the handshake syncs on the first segment
	if !sb.seqKnown {
		sb.SetExpectedSeq(tcpPkg.Seq)
	}

	// Discard packets outside the sliding window
	if !validPackage(sb.expectedSeq, MaxWindowSize, tcpPkg.Seq) {
		slog.Debug("SegmentBuffer.AddTCP, discard out-of-window seq:%v, expectedSeq:%v",
			tcpPkg.Seq, sb.expectedSeq)
		return
	}

	// duplicate package
	if sb.list.Get(tcpPkg.Seq) != nil {
		slog.Debug("SegmentBuffer.AddTCP, duplicate seq:%v", tcpPkg.Seq)
		return
	}

	ele := sb.list.Set(tcpPkg.Seq, tcpPkg)
	needRemoveList := make([]*skiplist.Element, 0)

	for ele != nil && sb.expectedSeq == tcpPkg.Seq {
		// sequence numbers may wrap around
		payloadSize := uint32(len(tcpPkg.Payload))
		sb.expectedSeq = tcpPkg.Seq + payloadSize
		sb.buffer.Write(tcpPkg.Payload)
		needRemoveList = append(needRemoveList, ele)

		ele = sb.list.Get(sb.expectedSeq)
		if ele != nil {
			tcpPkg = ele.Value.(*layers.TCP)
		}
	}

	for _, element := range needRemoveList {
		sb.list.RemoveElement(element)
	}
}

// Ready reports how many in-order bytes wait to be drained.
func (sb *SegmentBuffer) Ready() int {
	return sb.buffer.Len()
}

// Pending reports how many segments still wait for a gap to close.
func (sb *SegmentBuffer) Pending() int {
	return sb.list.Len()
}

// Drain hands the in-order bytes to the caller and resets the buffer.
func (sb *SegmentBuffer) Drain() []byte {
	if sb.buffer.Len() == 0 {
		return nil
	}
	out := make([]byte, sb.buffer.Len())
	copy(out, sb.buffer.Bytes())
	sb.buffer.Reset()
	return out
}

// validPackage checks if a packet sequence number falls within the valid window
// considering 32-bit unsigned integer wrap-around.
func validPackage(expectedSeq uint32, maxWindowSize uint32, pkgSeq uint32) bool {
	rightBorder := expectedSeq + maxWindowSize
	// Handle wrap-around case
	if rightBorder < expectedSeq {
		return pkgSeq <= rightBorder || pkgSeq >= expectedSeq
	}
	// Normal case (no wrap-around)
	return pkgSeq >= expectedSeq && pkgSeq <= rightBorder
}
