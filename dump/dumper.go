package dump

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/vearne/h2wire/hpack"
	"github.com/vearne/h2wire/http2"
	"github.com/vearne/h2wire/util"
	slog "github.com/vearne/simplelog"
)

// direction keeps one reassembled byte stream and the codec that walks
// it. Each direction of a connection carries its own HPACK state.
type direction struct {
	segments *SegmentBuffer
	stream   *http2.Buffer
	codec    *http2.FrameCodec
	// the client preface precedes the first frame on the input side
	expectPreface bool
	broken        bool
}

func newDirection(expectPreface bool) *direction {
	var d direction
	d.segments = NewSegmentBuffer()
	d.stream = http2.NewBuffer(4096)
	d.codec = http2.NewFrameCodec(hpack.DefaultDynamicTableSize, http2.DefaultMaxStreams)
	d.expectPreface = expectPreface
	return &d
}

type http2Conn struct {
	ID     string
	Flow   Flow
	Input  *direction
	Output *direction
}

func newHTTP2Conn(flow Flow) *http2Conn {
	var hc http2Conn
	hc.ID = uuid.Must(uuid.NewUUID()).String()
	hc.Flow = flow
	hc.Input = newDirection(true)
	hc.Output = newDirection(false)
	slog.Info("create http2Conn:%v, Flow:%v", hc.ID, flow.String())
	return &hc
}

// Dumper walks captured traffic of one inspected port and prints every
// HTTP/2 frame it can decode.
type Dumper struct {
	Port           int
	IPSet          *util.StringSet
	ConnRepository map[Flow]*http2Conn
	Out            io.Writer
}

func NewDumper(port int, ips []string, out io.Writer) *Dumper {
	var d Dumper
	d.Port = port
	d.IPSet = util.NewStringSet()
	d.IPSet.AddAll(ips)
	d.ConnRepository = make(map[Flow]*http2Conn, 16)
	d.Out = out
	return &d
}

// Feed routes one packet into its connection. Packets of filtered hosts
// come back from ProcessPacket as errors and never reach Feed; packets
// that touch neither end of the inspected port carry DirUnknown and are
// dropped here.
func (d *Dumper) Feed(pkg *NetPkg) {
	if pkg.Direction == DirUnknown {
		return
	}
	slog.Debug("packet %v, dir:%v, seq:%v, flags:%v",
		pkg.SrcIP, pkg.Direction, pkg.TCP.Seq, pkg.FlagString())

	key := pkg.Flow()
	hc, ok := d.ConnRepository[key]
	if !ok {
		hc = newHTTP2Conn(key)
		d.ConnRepository[key] = hc
	}

	if pkg.TCP.SYN {
		// handshake: pin the starting sequence numbers
		if pkg.Direction == DirIncoming {
			hc.Input.segments.SetExpectedSeq(pkg.TCP.Seq + 1)
		} else {
			hc.Output.segments.SetExpectedSeq(pkg.TCP.Seq + 1)
		}
		return
	}
	if pkg.TCP.RST {
		slog.Info("connection reset:%v, flags:%v", key.String(), pkg.FlagString())
		delete(d.ConnRepository, key)
		return
	}

	dir := hc.Input
	if pkg.Direction == DirOutcoming {
		dir = hc.Output
	}
	dir.segments.AddTCP(pkg.TCP)
	d.drain(hc, dir, pkg.Direction.String())
}

func (d *Dumper) drain(hc *http2Conn, dir *direction, label string) {
	if dir.broken {
		return
	}
	if data := dir.segments.Drain(); data != nil {
		dir.stream.WriteBytes(data)
	}

	if dir.expectPreface {
		if dir.stream.ReadableBytes() < http2.ConnectionPrefaceSize {
			return
		}
		preface, _ := dir.stream.ReadSlice(http2.ConnectionPrefaceSize)
		if !http2.IsConnPreface(preface) {
			slog.Warn("connection %v: no client preface, not HTTP/2?", hc.ID)
			dir.broken = true
			return
		}
		dir.expectPreface = false
		fmt.Fprintf(d.Out, "[%s] %s %s preface\n", hc.ID, hc.Flow.String(), label)
	}

	for {
		frame, err := dir.codec.Decode(dir.stream)
		if err != nil {
			if errors.Is(err, http2.ErrIncompleteFrame) {
				dir.stream.DiscardReadBytes()
				return
			}
			var unknown *http2.UnknownTypeError
			if errors.As(err, &unknown) {
				// RFC 7540 4.1: ignore and carry on
				fmt.Fprintf(d.Out, "[%s] %s unknown frame type 0x%x\n",
					hc.ID, label, unknown.FrameType)
				continue
			}
			// protocol or HPACK failure: this direction is undecodable now
			slog.Error("connection %v: %v", hc.ID, err)
			dir.broken = true
			return
		}
		fmt.Fprintf(d.Out, "[%s] %s %s\n", hc.ID, label, FormatFrame(frame))
	}
}

// FormatFrame renders one frame the way the dump output shows it.
func FormatFrame(f *http2.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s stream=%d flags=0x%02x",
		http2.GetFrameType(f.Payload.FrameType()), f.StreamID, f.Flags)
	switch p := f.Payload.(type) {
	case *http2.FrameData:
		fmt.Fprintf(&b, " len=%d", len(p.Data))
	case *http2.FrameHeaders:
		formatFields(&b, p.Fields)
	case *http2.FramePriority:
		fmt.Fprintf(&b, " dep=%d weight=%d exclusive=%v", p.StreamDep, p.Weight, p.Exclusive)
	case *http2.FrameRSTStream:
		fmt.Fprintf(&b, " code=%v", p.ErrCode)
	case *http2.FrameSettings:
		for _, s := range p.Settings {
			fmt.Fprintf(&b, " %v", s)
		}
	case *http2.FramePushPromise:
		fmt.Fprintf(&b, " promised=%d", p.PromisedStreamID)
		formatFields(&b, p.Fields)
	case *http2.FramePing:
		fmt.Fprintf(&b, " data=%x", p.Data)
	case *http2.FrameGoAway:
		fmt.Fprintf(&b, " last=%d code=%v", p.LastStreamID, p.ErrCode)
	case *http2.FrameWindowUpdate:
		fmt.Fprintf(&b, " increment=%d", p.Increment)
	case *http2.FrameContinuation:
		formatFields(&b, p.Fields)
	}
	return b.String()
}

func formatFields(b *strings.Builder, fields []hpack.HeaderField) {
	for _, f := range fields {
		fmt.Fprintf(b, " %s=%s", f.Name, f.Value)
	}
}
