package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.Timing.TxIntervalMs != 100 {
		t.Errorf("tx_interval_ms = %d, want 100", cfg.Timing.TxIntervalMs)
	}
	if cfg.Timing.CommTimeoutMs != 1000 {
		t.Errorf("comm_timeout_ms = %d, want 1000", cfg.Timing.CommTimeoutMs)
	}
	if cfg.Timing.ToleranceUs != 5000 {
		t.Errorf("tolerance_us = %d, want 5000", cfg.Timing.ToleranceUs)
	}
	if cfg.Socket.RcvBufBytes != 2*1024*1024 {
		t.Errorf("rcvbuf_bytes = %d, want 2 MiB", cfg.Socket.RcvBufBytes)
	}
	if cfg.Socket.SndBufBytes != 1024*1024 {
		t.Errorf("sndbuf_bytes = %d, want 1 MiB", cfg.Socket.SndBufBytes)
	}
	if cfg.Peer.UniqueID != 0x12345678 {
		t.Errorf("unique_id = %#x, want 0x12345678", cfg.Peer.UniqueID)
	}
	if !cfg.Threads.Realtime || cfg.Threads.RxPriority != 80 {
		t.Errorf("thread defaults = %+v", cfg.Threads)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	content := `
peer:
  src: "127.0.0.1:5000"
  dst: "127.0.0.1:6000"
  payload: "hello"
timing:
  tx_interval_ms: 50
  comm_timeout_ms: 500
threads:
  realtime: false
  rx_cpu_core: -1
  tx_cpu_core: -1
log:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "pulse.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Peer.Src != "127.0.0.1:5000" || cfg.Peer.Dst != "127.0.0.1:6000" {
		t.Errorf("peer = %+v", cfg.Peer)
	}
	if cfg.Timing.TxIntervalMs != 50 {
		t.Errorf("tx_interval_ms = %d, want 50", cfg.Timing.TxIntervalMs)
	}
	// Untouched keys keep their defaults.
	if cfg.Timing.StatsIntervalMs != 250 {
		t.Errorf("stats_interval_ms = %d, want default 250", cfg.Timing.StatsIntervalMs)
	}
	if cfg.Threads.Realtime {
		t.Error("realtime not overridden to false")
	}
	if cfg.Log == nil || cfg.Log.Level != "debug" {
		t.Errorf("log config = %+v", cfg.Log)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/pulse.yml"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidateRejectsBadAddrs(t *testing.T) {
	cfg, _ := Load("")
	cfg.Peer.Src = "not-an-addr"
	cfg.Peer.Dst = "127.0.0.1:6000"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid src accepted")
	}

	cfg.Peer.Src = "127.0.0.1:5000"
	cfg.Peer.Dst = "127.0.0.1"
	if err := cfg.Validate(); err == nil {
		t.Error("dst without port accepted")
	}
}

func TestValidateRejectsBadPriority(t *testing.T) {
	cfg, _ := Load("")
	cfg.Peer.Src = "127.0.0.1:5000"
	cfg.Peer.Dst = "127.0.0.1:6000"
	cfg.Threads.RxPriority = 120
	if err := cfg.Validate(); err == nil {
		t.Error("priority 120 accepted")
	}
}

func TestValidateRejectsOversizedPayload(t *testing.T) {
	cfg, _ := Load("")
	cfg.Peer.Src = "127.0.0.1:5000"
	cfg.Peer.Dst = "127.0.0.1:6000"
	cfg.Peer.Payload = string(make([]byte, 257))
	if err := cfg.Validate(); err == nil {
		t.Error("257-byte payload accepted")
	}
}
