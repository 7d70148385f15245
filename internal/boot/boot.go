// Package boot wires the datapath together and runs it until a
// shutdown signal arrives: endpoint, engine, event-loop timers,
// metrics, trace and recorder.
package boot

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/engine"
	"firestige.xyz/pulse/internal/event"
	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/metrics"
	"firestige.xyz/pulse/internal/packet"
	"firestige.xyz/pulse/internal/report"
	"firestige.xyz/pulse/internal/ring"
	"firestige.xyz/pulse/internal/sink"
	"firestige.xyz/pulse/internal/socket"
	"firestige.xyz/pulse/internal/stats"
	"firestige.xyz/pulse/internal/trace"
)

// dashboardEvery keeps the console dashboard at ~1 Hz with the default
// 250 ms snapshot cadence.
const dashboardEvery = 4

// Run starts the peer and blocks until SIGINT/SIGTERM. It returns nil
// after a clean shutdown and an error for any initialization failure.
func Run(cfg *config.Config) error {
	if err := log.Init(cfg.Log); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.GetLogger()

	src, err := cfg.SrcAddr()
	if err != nil {
		return err
	}
	dst, err := cfg.DstAddr()
	if err != nil {
		return err
	}

	logger.Infof("pulse peer: src %s, dst %s, tx every %d ms, comm timeout %d ms, tolerance %d us",
		src, dst, cfg.Timing.TxIntervalMs, cfg.Timing.CommTimeoutMs, cfg.Timing.ToleranceUs)

	endpoint, err := socket.Open(src, dst)
	if err != nil {
		return err
	}
	defer endpoint.Close()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		metricsServer.Start()
		defer metricsServer.Stop()
	}

	var tracer *trace.Writer
	if cfg.Trace.Enabled {
		tracer, err = trace.NewWriter(cfg.Trace.File, src, dst)
		if err != nil {
			return err
		}
		defer tracer.Close()
		logger.Infof("tracing received datagrams to %s", cfg.Trace.File)
	}

	var recorder *report.Recorder
	if cfg.Recorder.Enabled {
		recorder, err = report.Open(cfg.Recorder.DBFile, cfg.Recorder.CSVFile)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	out := sink.NewConsole(dashboardEvery)

	// TX codec is main-thread-owned, RX codec RX-thread-owned. Only
	// the RX codec's atomic last-change stamp crosses threads.
	txCodec := packet.NewCodec()
	txCodec.SetUniqueID(cfg.Peer.UniqueID)

	rxCodec := packet.NewCodec()
	rxCodec.SetCommTimeout(cfg.Timing.CommTimeoutMs)
	rxCodec.SetExpectedInterval(cfg.Timing.TxIntervalMs, cfg.Timing.ToleranceUs)

	mgr := engine.NewManager()
	mgr.SetRxCallback(func(data []byte) {
		rxHandler(rxCodec, data, out)
	})

	engineCfg := engine.Config{
		RxCpuCore:   cfg.Threads.RxCpuCore,
		TxCpuCore:   cfg.Threads.TxCpuCore,
		RxPriority:  cfg.Threads.RxPriority,
		TxPriority:  cfg.Threads.TxPriority,
		Realtime:    cfg.Threads.Realtime,
		RcvBufBytes: cfg.Socket.RcvBufBytes,
		SndBufBytes: cfg.Socket.SndBufBytes,
	}
	if err := mgr.Start(endpoint, engineCfg); err != nil {
		return err
	}

	loop, err := event.NewLoop()
	if err != nil {
		mgr.Stop()
		return err
	}
	defer loop.Close()

	timers, err := installTimers(cfg, loop, mgr, txCodec, rxCodec, out, tracer, recorder)
	defer func() {
		for _, t := range timers {
			t.Close()
		}
	}()
	if err != nil {
		mgr.Stop()
		return err
	}

	// Signals land on the main thread; the workers mask them. The
	// handler only flips the cooperative stop; a second signal forces
	// exit.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Warnf("received %s, shutting down", s)
		loop.Stop()
		<-sigCh
		os.Exit(130)
	}()

	loop.Run()

	logger.Info("shutting down")
	mgr.Stop()

	out.Summarize(sink.Summary{
		RxPackets:  mgr.RxPacketCount(),
		TxPackets:  mgr.TxPacketCount(),
		RxDrops:    mgr.RxDropCount(),
		TxDrops:    mgr.TxDropCount(),
		RxLatency:  mgr.RxLatency().Compute(),
		TxLatency:  mgr.TxLatency().Compute(),
		RxInterval: mgr.RxInterval().Compute(),
	})
	return nil
}

// installTimers registers the four periodic timers: TX encode, comm
// monitor, stats report and RX ring drain.
func installTimers(
	cfg *config.Config,
	loop *event.Loop,
	mgr *engine.Manager,
	txCodec, rxCodec *packet.Codec,
	out sink.Sink,
	tracer *trace.Writer,
	recorder *report.Recorder,
) ([]*event.PeriodicTimer, error) {
	var timers []*event.PeriodicTimer

	add := func(intervalMs uint32, cb func()) error {
		t, err := event.NewPeriodicTimer(time.Duration(intervalMs) * time.Millisecond)
		if err != nil {
			return err
		}
		t.SetCallback(cb)
		if err := loop.Register(t.Fd(), unix.EPOLLIN, t.Handle); err != nil {
			t.Close()
			return err
		}
		timers = append(timers, t)
		return nil
	}

	payload := []byte(cfg.Peer.Payload)
	txBuf := make([]byte, packet.MaxPacketSize)
	if err := add(cfg.Timing.TxIntervalMs, func() {
		txTick(txCodec, payload, txBuf, mgr)
	}); err != nil {
		return timers, err
	}

	if err := add(cfg.Timing.MonitorIntervalMs, func() {
		monitorTick(rxCodec, out)
	}); err != nil {
		return timers, err
	}

	if err := add(cfg.Timing.StatsIntervalMs, func() {
		statsTick(mgr, out, recorder)
	}); err != nil {
		return timers, err
	}

	drainBuf := make([]byte, ring.MaxPacketSize)
	if err := add(cfg.Timing.DrainIntervalMs, func() {
		drainTick(mgr, tracer, drainBuf)
	}); err != nil {
		return timers, err
	}

	return timers, nil
}

// rxHandler runs on the RX worker thread for each received datagram.
// It must stay non-blocking: decode, account, emit at most a debug
// record and an instability warning.
func rxHandler(rxCodec *packet.Codec, data []byte, out sink.Sink) {
	if !rxCodec.Decode(data) {
		metrics.DecodeErrorsTotal.WithLabelValues(rxCodec.Err().String()).Inc()
		log.GetLogger().Debugf("RX decode failed: %s", rxCodec.Err())
		return
	}

	metrics.CommUnstable.Set(metrics.BoolValue(rxCodec.IsCommUnstable()))

	if log.GetLogger().IsDebugEnabled() {
		out.Log(fmt.Sprintf("[RX] id 0x%08X lifesign %d len %d interval %d us",
			rxCodec.UniqueID(), rxCodec.ReceivedLifesign(),
			rxCodec.DataLength(), rxCodec.LastIntervalUs()))
	}
	if rxCodec.IsCommUnstable() {
		out.Log(fmt.Sprintf("[RX] warning: communication unstable (count %d, interval %d us)",
			rxCodec.UnstableCounter(), rxCodec.LastIntervalUs()))
	}
}

// txTick encodes the next lifesign frame and queues it for the TX
// worker.
func txTick(txCodec *packet.Codec, payload, txBuf []byte, mgr *engine.Manager) {
	txCodec.SetData(payload)
	n := txCodec.Encode(txBuf)
	if n == 0 {
		log.GetLogger().Errorf("TX encode failed: %s", txCodec.Err())
		return
	}
	if mgr.EnqueueTx(txBuf[:n]) {
		log.GetLogger().Debugf("[TX] lifesign %d queued %d bytes (queue %d)",
			txCodec.Lifesign()-1, n, mgr.TxQueueSize())
	} else {
		log.GetLogger().Warn("[TX] queue full, frame dropped")
	}
}

// monitorTick checks for a frozen peer lifesign. It reads only the
// codec's atomically published last-change stamp, so running on the
// main thread is safe.
func monitorTick(rxCodec *packet.Codec, out sink.Sink) {
	lost := rxCodec.IsCommLost()
	metrics.CommLost.Set(metrics.BoolValue(lost))
	if lost {
		out.Log(fmt.Sprintf("[MONITOR] communication lost: no lifesign change for %d ms (threshold %d ms)",
			rxCodec.TimeSinceLastChangeMs(), rxCodec.CommTimeoutMs()))
	}
}

// statsTick snapshots the three histograms, refreshes the dashboard
// and the exported gauges, and appends recorder rows.
func statsTick(mgr *engine.Manager, out sink.Sink, recorder *report.Recorder) {
	tx := mgr.TxLatency().Compute()
	rx := mgr.RxLatency().Compute()
	interval := mgr.RxInterval().Compute()

	out.UpdateDashboard(tx, rx, interval)

	snapshots := map[string]stats.Result{
		"tx_latency":  tx,
		"rx_latency":  rx,
		"rx_interval": interval,
	}
	for label, r := range snapshots {
		exportPercentiles(label, r)
		if recorder != nil {
			if err := recorder.Record(label, r); err != nil {
				log.GetLogger().WithError(err).Warn("stats recorder write failed")
			}
		}
	}
}

// exportPercentiles republishes one snapshot through the Prometheus
// gauges.
func exportPercentiles(metric string, r stats.Result) {
	if r.Count == 0 {
		return
	}
	g := metrics.LatencyPercentileUs
	g.WithLabelValues(metric, "p50").Set(r.P50Us)
	g.WithLabelValues(metric, "p95").Set(r.P95Us)
	g.WithLabelValues(metric, "p99").Set(r.P99Us)
	g.WithLabelValues(metric, "p999").Set(r.P999Us)
	g.WithLabelValues(metric, "p9999").Set(r.P9999Us)
}

// drainTick empties the RX ring on the main thread, feeding the
// optional pcap trace. With tracing off the packets are discarded;
// the drain still keeps ring-drop accounting meaningful.
func drainTick(mgr *engine.Manager, tracer *trace.Writer, buf []byte) {
	for {
		n, ok := mgr.RxRing().Pop(buf)
		if !ok {
			return
		}
		if tracer != nil {
			if err := tracer.Record(buf[:n]); err != nil {
				log.GetLogger().WithError(err).Warn("trace write failed")
			}
		}
	}
}
