package engine

import (
	"runtime"
	"time"

	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/metrics"
	"firestige.xyz/pulse/internal/ring"
	"firestige.xyz/pulse/internal/socket"
)

// rxWorker blocks in recv with the 100 ms timeout, stamps each arrival,
// pushes it to the RX ring and invokes the registered callback in-line.
func (m *Manager) rxWorker() {
	defer m.wg.Done()

	runtime.LockOSThread()
	m.configureThread("rx", m.cfg.RxCpuCore, m.cfg.RxPriority)

	logger := log.GetLogger().WithField("worker", "rx")
	logger.Info("RX worker started")

	buf := make([]byte, ring.MaxPacketSize)
	var lastRx time.Time
	first := true

	for m.running.Load() {
		n, err := m.endpoint.Recv(buf)
		if n > 0 {
			rxStart := time.Now()
			m.rxPackets.Add(1)
			metrics.PacketsTotal.WithLabelValues("rx").Inc()

			if !first {
				m.rxInterval.RecordDuration(lastRx, rxStart)
			}
			lastRx = rxStart
			first = false

			if !m.rxRing.Push(buf[:n]) {
				m.rxDrops.Add(1)
				metrics.DropsTotal.WithLabelValues("rx").Inc()
			}
			if m.rxCallback != nil {
				m.rxCallback(buf[:n])
			}

			m.rxLatency.RecordSince(rxStart)
			continue
		}
		if err != nil {
			if socket.Transient(err) {
				continue
			}
			logger.WithError(err).Error("RX worker: fatal receive error")
			break
		}
	}

	logger.Info("RX worker stopped")
}

// txWorker drains the TX ring into the socket, timing each send. An
// empty ring backs off for 10 µs instead of spinning.
func (m *Manager) txWorker() {
	defer m.wg.Done()

	runtime.LockOSThread()
	m.configureThread("tx", m.cfg.TxCpuCore, m.cfg.TxPriority)

	logger := log.GetLogger().WithField("worker", "tx")
	logger.Info("TX worker started")

	buf := make([]byte, ring.MaxPacketSize)

	for m.running.Load() {
		n, ok := m.txRing.Pop(buf)
		if !ok {
			time.Sleep(txIdleSleep)
			continue
		}

		txStart := time.Now()
		sent, err := m.endpoint.Send(buf[:n])
		txEnd := time.Now()

		if err == nil && sent > 0 {
			m.txPackets.Add(1)
			metrics.PacketsTotal.WithLabelValues("tx").Inc()
			m.txLatency.RecordDuration(txStart, txEnd)
		} else {
			m.txDrops.Add(1)
			metrics.DropsTotal.WithLabelValues("tx").Inc()
			if err != nil && !socket.Transient(err) {
				logger.WithError(err).Warn("TX worker: send failed")
			}
		}
	}

	logger.Info("TX worker stopped")
}
