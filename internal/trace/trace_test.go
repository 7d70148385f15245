package trace

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func TestWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.pcap")
	local := netip.MustParseAddrPort("127.0.0.1:5000")
	remote := netip.MustParseAddrPort("127.0.0.1:6000")

	w, err := NewWriter(path, local, remote)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	payloads := [][]byte{
		[]byte("first lifesign"),
		[]byte("second lifesign"),
	}
	for _, p := range payloads {
		if err := w.Record(p); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}

	for i, want := range payloads {
		data, _, err := r.ReadPacketData()
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		pkt := gopacket.NewPacket(data, layers.LinkTypeEthernet, gopacket.Default)

		udp, ok := pkt.TransportLayer().(*layers.UDP)
		if !ok {
			t.Fatalf("frame %d has no UDP layer", i)
		}
		if udp.DstPort != 5000 || udp.SrcPort != 6000 {
			t.Errorf("frame %d ports = %d->%d, want 6000->5000", i, udp.SrcPort, udp.DstPort)
		}
		if got := string(udp.Payload); got != string(want) {
			t.Errorf("frame %d payload = %q, want %q", i, got, want)
		}
	}
}
