package engine

import (
	"golang.org/x/sys/unix"

	"firestige.xyz/pulse/internal/log"
)

// configureThread applies the per-worker thread setup on the calling
// (locked) OS thread: mask SIGINT/SIGTERM so delivery lands on the
// main thread, then best-effort CPU pinning and SCHED_FIFO. Pinning
// and scheduling failures are logged and ignored; they never stop the
// worker.
func (m *Manager) configureThread(name string, cpuCore, priority int) {
	logger := log.GetLogger().WithField("worker", name)

	var sigs unix.Sigset_t
	sigsetAdd(&sigs, unix.SIGINT)
	sigsetAdd(&sigs, unix.SIGTERM)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &sigs, nil); err != nil {
		logger.WithError(err).Warn("failed to mask signals")
	}

	if cpuCore >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(cpuCore)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			logger.WithError(err).Warnf("failed to pin to CPU core %d", cpuCore)
		} else {
			logger.Infof("pinned to CPU core %d", cpuCore)
		}
	}

	if m.cfg.Realtime && priority > 0 {
		attr := unix.SchedAttr{
			Size:     unix.SizeofSchedAttr,
			Policy:   unix.SCHED_FIFO,
			Priority: uint32(priority),
		}
		if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
			logger.WithError(err).Warnf(
				"failed to set SCHED_FIFO priority %d (may require CAP_SYS_NICE); continuing at default scheduling",
				priority)
		} else {
			logger.Infof("SCHED_FIFO priority %d", priority)
		}
	}
}

// sigsetAdd sets the bit for signum in a kernel sigset.
func sigsetAdd(set *unix.Sigset_t, signum unix.Signal) {
	idx := uint(signum) - 1
	set.Val[idx/64] |= 1 << (idx % 64)
}

// configureSocketBuffers applies SO_RCVBUF/SO_SNDBUF/SO_RCVTIMEO on
// the endpoint's descriptor. The kernel may cap the requested buffer
// sizes; both requested and granted values are logged.
func (m *Manager) configureSocketBuffers() error {
	fd := m.endpoint.Fd()
	logger := log.GetLogger()

	if m.cfg.RcvBufBytes > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, m.cfg.RcvBufBytes); err != nil {
			return err
		}
		if actual, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF); err == nil {
			logger.Infof("SO_RCVBUF set to %d bytes (requested %d)", actual, m.cfg.RcvBufBytes)
		}
	}

	if m.cfg.SndBufBytes > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, m.cfg.SndBufBytes); err != nil {
			return err
		}
		if actual, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF); err == nil {
			logger.Infof("SO_SNDBUF set to %d bytes (requested %d)", actual, m.cfg.SndBufBytes)
		}
	}

	// The receive timeout is what lets the RX worker observe the
	// shutdown flag while the peer is silent.
	if err := m.endpoint.SetRecvTimeout(recvTimeout); err != nil {
		return err
	}
	logger.Infof("SO_RCVTIMEO set to %s", recvTimeout)
	return nil
}
