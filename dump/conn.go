package dump

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/vearne/h2wire/util"
)

// Flow identifies one captured connection. It is always keyed from the
// client's point of view, no matter which direction a packet travels,
// so both halves of a conversation land on the same map entry.
type Flow struct {
	Client psnet.Addr
	Server psnet.Addr
}

func (f *Flow) String() string {
	return fmt.Sprintf("%v:%v <-> %v:%v", f.Client.IP,
		f.Client.Port, f.Server.IP, f.Server.Port)
}

// Dir tells which half of a flow a packet belongs to.
type Dir uint8

const (
	DirUnknown Dir = iota
	// client -> server
	DirIncoming
	// server -> client
	DirOutcoming
)

func (d Dir) String() string {
	switch d {
	case DirIncoming:
		return "in"
	case DirOutcoming:
		return "out"
	}
	return "unknown"
}

type NetPkg struct {
	SrcIP string
	DstIP string

	IPv4      *layers.IPv4
	IPv6      *layers.IPv6
	TCP       *layers.TCP
	Direction Dir
}

// ProcessPacket extracts the TCP segment of one captured packet. The
// direction is decided by the inspected port; ipSet, when non-empty,
// narrows the capture to the given hosts.
func ProcessPacket(packet gopacket.Packet, ipSet *util.StringSet, port int) (*NetPkg, error) {
	var p NetPkg

	ipLayerIPv4 := packet.Layer(layers.LayerTypeIPv4)
	ipLayerIPv6 := packet.Layer(layers.LayerTypeIPv6)
	if ipLayerIPv4 == nil && ipLayerIPv6 == nil {
		return nil, errors.New("invalid IP package")
	}

	if ipLayerIPv4 != nil {
		p.IPv4 = ipLayerIPv4.(*layers.IPv4)
		p.SrcIP = p.IPv4.SrcIP.String()
		p.DstIP = p.IPv4.DstIP.String()
	}
	if ipLayerIPv6 != nil {
		p.IPv6 = ipLayerIPv6.(*layers.IPv6)
		p.SrcIP = p.IPv6.SrcIP.String()
		p.DstIP = p.IPv6.DstIP.String()
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return nil, errors.New("invalid TCP package")
	}
	p.TCP = tcpLayer.(*layers.TCP)

	if ipSet.Size() > 0 && !ipSet.Has(p.SrcIP) && !ipSet.Has(p.DstIP) {
		return nil, errors.New("filtered by host")
	}
	if int(p.TCP.DstPort) == port {
		p.Direction = DirIncoming
	} else if int(p.TCP.SrcPort) == port {
		p.Direction = DirOutcoming
	} else {
		p.Direction = DirUnknown
	}
	return &p, nil
}

// Flow derives the connection key: the client side is whichever end did
// not bind the inspected port.
func (p *NetPkg) Flow() Flow {
	var f Flow
	if p.Direction == DirOutcoming {
		f.Server.IP, f.Client.IP = p.SrcIP, p.DstIP
		f.Server.Port, f.Client.Port = uint32(p.TCP.SrcPort), uint32(p.TCP.DstPort)
	} else {
		f.Client.IP, f.Server.IP = p.SrcIP, p.DstIP
		f.Client.Port, f.Server.Port = uint32(p.TCP.SrcPort), uint32(p.TCP.DstPort)
	}
	return f
}

// FlagString renders the TCP flag bits of the segment, e.g. "SYN|ACK".
func (p *NetPkg) FlagString() string {
	names := []string{"FIN", "SYN", "RST", "PSH", "ACK", "URG"}
	set := []bool{p.TCP.FIN, p.TCP.SYN, p.TCP.RST, p.TCP.PSH, p.TCP.ACK, p.TCP.URG}
	parts := make([]string, 0, 2)
	for i, on := range set {
		if on {
			parts = append(parts, names[i])
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}
