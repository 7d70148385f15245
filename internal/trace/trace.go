// Package trace writes the datagrams drained from the RX ring to a
// pcap capture file for offline analysis. The original link/network
// headers are gone by the time a payload reaches the ring, so the
// writer synthesizes an Ethernet/IPv4/UDP envelope from the configured
// peer addresses.
package trace

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snapLen = 65536

var (
	srcMAC = net.HardwareAddr{0x02, 0x70, 0x75, 0x6c, 0x73, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x70, 0x75, 0x6c, 0x73, 0x02}
)

// Writer records application datagrams into a pcap file. Main-thread
// use only.
type Writer struct {
	f    *os.File
	w    *pcapgo.Writer
	eth  layers.Ethernet
	ip   layers.IPv4
	udp  layers.UDP
	opts gopacket.SerializeOptions
}

// NewWriter creates the capture file and writes its header. The frames
// are addressed remote→local, matching the RX direction of the ring.
func NewWriter(path string, local, remote netip.AddrPort) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace create %s: %w", path, err)
	}

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("trace header: %w", err)
	}

	t := &Writer{
		f: f,
		w: w,
		eth: layers.Ethernet{
			SrcMAC:       srcMAC,
			DstMAC:       dstMAC,
			EthernetType: layers.EthernetTypeIPv4,
		},
		ip: layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP(remote.Addr().AsSlice()),
			DstIP:    net.IP(local.Addr().AsSlice()),
		},
		udp: layers.UDP{
			SrcPort: layers.UDPPort(remote.Port()),
			DstPort: layers.UDPPort(local.Port()),
		},
		opts: gopacket.SerializeOptions{
			FixLengths:       true,
			ComputeChecksums: true,
		},
	}
	t.udp.SetNetworkLayerForChecksum(&t.ip)
	return t, nil
}

// Record appends one datagram payload as a captured frame.
func (t *Writer) Record(payload []byte) error {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, t.opts,
		&t.eth, &t.ip, &t.udp, gopacket.Payload(payload))
	if err != nil {
		return fmt.Errorf("trace serialize: %w", err)
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := t.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("trace write: %w", err)
	}
	return nil
}

// Close flushes and closes the capture file.
func (t *Writer) Close() error {
	return t.f.Close()
}
