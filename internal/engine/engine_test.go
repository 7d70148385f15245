package engine

import (
	"fmt"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"firestige.xyz/pulse/internal/ring"
	"firestige.xyz/pulse/internal/socket"
)

// testConfig disables pinning and realtime scheduling so the tests run
// unprivileged.
func testConfig() Config {
	return Config{
		RxCpuCore:   -1,
		TxCpuCore:   -1,
		RcvBufBytes: 256 * 1024,
		SndBufBytes: 256 * 1024,
	}
}

func endpointPair(t *testing.T) (*socket.Endpoint, *socket.Endpoint) {
	t.Helper()
	base := 30000 + (int(time.Now().UnixNano()/1000) % 20000)
	a := netip.MustParseAddrPort(fmt.Sprintf("127.0.0.1:%d", base))
	b := netip.MustParseAddrPort(fmt.Sprintf("127.0.0.1:%d", base+1))

	ea, err := socket.Open(a, b)
	if err != nil {
		t.Fatalf("open A: %v", err)
	}
	t.Cleanup(ea.Close)
	eb, err := socket.Open(b, a)
	if err != nil {
		t.Fatalf("open B: %v", err)
	}
	t.Cleanup(eb.Close)
	return ea, eb
}

func TestRoundTripBetweenTwoManagers(t *testing.T) {
	ea, eb := endpointPair(t)

	ma := NewManager()
	mb := NewManager()

	var received atomic.Uint64
	mb.SetRxCallback(func(data []byte) {
		received.Add(1)
	})

	if err := ma.Start(ea, testConfig()); err != nil {
		t.Fatalf("start A: %v", err)
	}
	defer ma.Stop()
	if err := mb.Start(eb, testConfig()); err != nil {
		t.Fatalf("start B: %v", err)
	}
	defer mb.Stop()

	frame := []byte("lifesign frame payload")
	const count = 20
	for i := 0; i < count; i++ {
		if !ma.EnqueueTx(frame) {
			t.Fatalf("enqueue %d failed", i)
		}
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for received.Load() < count && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := received.Load(); got < count {
		t.Fatalf("callback saw %d packets, want %d", got, count)
	}
	if got := ma.TxPacketCount(); got < count {
		t.Errorf("A tx count = %d, want >= %d", got, count)
	}
	if got := mb.RxPacketCount(); got < count {
		t.Errorf("B rx count = %d, want >= %d", got, count)
	}
	if mb.RxLatency().Count() < count {
		t.Errorf("rx latency samples = %d, want >= %d", mb.RxLatency().Count(), count)
	}
	if ma.TxLatency().Count() < count {
		t.Errorf("tx latency samples = %d, want >= %d", ma.TxLatency().Count(), count)
	}
	// n packets yield n-1 intervals.
	if mb.RxInterval().Count() < count-1 {
		t.Errorf("interval samples = %d, want >= %d", mb.RxInterval().Count(), count-1)
	}

	// Received frames are also queued on the RX ring for the
	// main-thread consumer.
	buf := make([]byte, ring.MaxPacketSize)
	n, ok := mb.RxRing().Pop(buf)
	if !ok || string(buf[:n]) != string(frame) {
		t.Errorf("rx ring pop = (%q, %v)", buf[:n], ok)
	}
}

func TestRxWorkerSurvivesSilentPeer(t *testing.T) {
	ea, _ := endpointPair(t)

	m := NewManager()
	if err := m.Start(ea, testConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// No peer traffic: the worker must idle through several receive
	// timeouts without exiting, then stop cleanly.
	time.Sleep(350 * time.Millisecond)
	m.Stop()

	if m.RxPacketCount() != 0 || m.RxDropCount() != 0 {
		t.Errorf("counters moved with no traffic: rx=%d drops=%d",
			m.RxPacketCount(), m.RxDropCount())
	}
}

func TestEnqueueTxOverflowCountsDrops(t *testing.T) {
	// No workers started: the TX ring has no consumer, mirroring a
	// paused TX thread.
	m := NewManager()

	frame := []byte{0x01, 0x02}
	const attempts = 2000
	accepted := 0
	for i := 0; i < attempts; i++ {
		if m.EnqueueTx(frame) {
			accepted++
		}
	}

	if accepted != ring.Capacity-1 {
		t.Errorf("accepted = %d, want %d", accepted, ring.Capacity-1)
	}
	wantDrops := uint64(attempts - (ring.Capacity - 1))
	if got := m.TxDropCount(); got != wantDrops {
		t.Errorf("tx drops = %d, want %d", got, wantDrops)
	}
}

func TestStopIdempotent(t *testing.T) {
	ea, _ := endpointPair(t)
	m := NewManager()
	if err := m.Start(ea, testConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Stop()
	m.Stop()
	m.Stop()
}

func TestStartTwiceRejected(t *testing.T) {
	ea, _ := endpointPair(t)
	m := NewManager()
	if err := m.Start(ea, testConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()
	if err := m.Start(ea, testConfig()); err == nil {
		t.Error("second start accepted")
	}
}
