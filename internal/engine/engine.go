// Package engine runs the real-time datapath: an RX worker and a TX
// worker on dedicated OS threads, joined to the main thread by two
// SPSC rings, with latency histograms recorded on the hot path.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/metrics"
	"firestige.xyz/pulse/internal/ring"
	"firestige.xyz/pulse/internal/socket"
	"firestige.xyz/pulse/internal/stats"
)

// recvTimeout bounds the RX blocking receive so the worker observes
// the shutdown flag at least this often.
const recvTimeout = 100 * time.Millisecond

// txIdleSleep is the TX back-off while its ring is empty.
const txIdleSleep = 10 * time.Microsecond

// RxCallback runs on the RX worker thread for every received datagram.
// It must not block and must not take locks shared with ring users.
type RxCallback func(data []byte)

// Config tunes worker placement, scheduling and socket buffers.
type Config struct {
	RxCpuCore  int // -1 disables pinning
	TxCpuCore  int
	RxPriority int // SCHED_FIFO priority 1..99, used when Realtime
	TxPriority int
	Realtime   bool

	RcvBufBytes int
	SndBufBytes int
}

// Manager owns the two rings, the three histograms and both workers.
type Manager struct {
	running atomic.Bool
	wg      sync.WaitGroup

	endpoint *socket.Endpoint
	cfg      Config

	rxRing *ring.Ring // RX worker -> main thread
	txRing *ring.Ring // main thread -> TX worker

	rxCallback RxCallback

	rxLatency  *stats.Histogram // recv completion -> callback done
	txLatency  *stats.Histogram // send call duration
	rxInterval *stats.Histogram // inter-packet arrival jitter

	rxPackets atomic.Uint64
	txPackets atomic.Uint64
	rxDrops   atomic.Uint64
	txDrops   atomic.Uint64
}

// NewManager allocates the rings and histograms. They live for the
// process; workers start later via Start.
func NewManager() *Manager {
	return &Manager{
		rxRing:     ring.New(),
		txRing:     ring.New(),
		rxLatency:  stats.NewHistogram(stats.DefaultCapacity),
		txLatency:  stats.NewHistogram(stats.DefaultCapacity),
		rxInterval: stats.NewHistogram(stats.DefaultCapacity),
	}
}

// SetRxCallback registers the per-datagram callback. Must be called
// before Start; the callback executes on the RX worker thread.
func (m *Manager) SetRxCallback(cb RxCallback) {
	m.rxCallback = cb
}

// Start tunes the socket and spawns both workers. Buffer-size failures
// are fatal; affinity and scheduling failures are logged and ignored.
func (m *Manager) Start(endpoint *socket.Endpoint, cfg Config) error {
	if m.running.Load() {
		return fmt.Errorf("engine already running")
	}
	m.endpoint = endpoint
	m.cfg = cfg

	if err := m.configureSocketBuffers(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}

	m.running.Store(true)
	m.wg.Add(2)
	go m.rxWorker()
	go m.txWorker()

	rt := ""
	if cfg.Realtime {
		rt = " (SCHED_FIFO)"
	}
	log.GetLogger().Infof("engine started: RX core %d prio %d%s, TX core %d prio %d%s",
		cfg.RxCpuCore, cfg.RxPriority, rt, cfg.TxCpuCore, cfg.TxPriority, rt)
	return nil
}

// Stop publishes the shutdown flag, joins both workers and logs the
// final counters. Safe to call multiple times.
func (m *Manager) Stop() {
	if !m.running.Swap(false) {
		return
	}
	m.wg.Wait()

	log.GetLogger().Infof("engine stopped: RX packets %d dropped %d, TX packets %d dropped %d",
		m.rxPackets.Load(), m.rxDrops.Load(), m.txPackets.Load(), m.txDrops.Load())
}

// EnqueueTx queues one encoded frame for transmission. Single producer:
// the main thread. Returns false after counting the drop when the TX
// ring is full or the frame is oversized.
func (m *Manager) EnqueueTx(data []byte) bool {
	if !m.txRing.Push(data) {
		m.txDrops.Add(1)
		metrics.DropsTotal.WithLabelValues("tx").Inc()
		return false
	}
	return true
}

// RxRing exposes the RX ring for the main-thread consumer.
func (m *Manager) RxRing() *ring.Ring { return m.rxRing }

// TxQueueSize reports the TX ring depth.
func (m *Manager) TxQueueSize() int { return m.txRing.Size() }

// RxLatency returns the RX processing-latency histogram for read-only
// snapshotting.
func (m *Manager) RxLatency() *stats.Histogram { return m.rxLatency }

// TxLatency returns the TX send-latency histogram.
func (m *Manager) TxLatency() *stats.Histogram { return m.txLatency }

// RxInterval returns the inter-arrival jitter histogram.
func (m *Manager) RxInterval() *stats.Histogram { return m.rxInterval }

// Counter accessors; relaxed loads, readers see recent values.

func (m *Manager) RxPacketCount() uint64 { return m.rxPackets.Load() }
func (m *Manager) TxPacketCount() uint64 { return m.txPackets.Load() }
func (m *Manager) RxDropCount() uint64   { return m.rxDrops.Load() }
func (m *Manager) TxDropCount() uint64   { return m.txDrops.Load() }
