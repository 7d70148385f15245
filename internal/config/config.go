// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pulse/internal/log"
)

// Config is the top-level configuration. Every field has a default, so
// a node runs with nothing but `--src` and `--dst` on the command line.
type Config struct {
	Peer     PeerConfig        `mapstructure:"peer" yaml:"peer"`
	Timing   TimingConfig      `mapstructure:"timing" yaml:"timing"`
	Threads  ThreadConfig      `mapstructure:"threads" yaml:"threads"`
	Socket   SocketConfig      `mapstructure:"socket" yaml:"socket"`
	Metrics  MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Trace    TraceConfig       `mapstructure:"trace" yaml:"trace"`
	Recorder RecorderConfig    `mapstructure:"recorder" yaml:"recorder"`
	Log      *log.LoggerConfig `mapstructure:"log" yaml:"log"`
}

// PeerConfig identifies this node and its remote partner.
type PeerConfig struct {
	Src      string `mapstructure:"src" yaml:"src"` // local ipv4:port
	Dst      string `mapstructure:"dst" yaml:"dst"` // remote ipv4:port
	UniqueID uint32 `mapstructure:"unique_id" yaml:"unique_id"`
	Payload  string `mapstructure:"payload" yaml:"payload"`
}

// TimingConfig carries the cadence and the liveness thresholds.
type TimingConfig struct {
	TxIntervalMs      uint32 `mapstructure:"tx_interval_ms" yaml:"tx_interval_ms"`
	MonitorIntervalMs uint32 `mapstructure:"monitor_interval_ms" yaml:"monitor_interval_ms"`
	StatsIntervalMs   uint32 `mapstructure:"stats_interval_ms" yaml:"stats_interval_ms"`
	DrainIntervalMs   uint32 `mapstructure:"drain_interval_ms" yaml:"drain_interval_ms"`
	CommTimeoutMs     uint32 `mapstructure:"comm_timeout_ms" yaml:"comm_timeout_ms"`
	ToleranceUs       uint32 `mapstructure:"tolerance_us" yaml:"tolerance_us"`
}

// ThreadConfig tunes worker placement and scheduling. Affinity and
// real-time scheduling are best-effort; -1 disables pinning.
type ThreadConfig struct {
	RxCpuCore  int  `mapstructure:"rx_cpu_core" yaml:"rx_cpu_core"`
	TxCpuCore  int  `mapstructure:"tx_cpu_core" yaml:"tx_cpu_core"`
	RxPriority int  `mapstructure:"rx_priority" yaml:"rx_priority"`
	TxPriority int  `mapstructure:"tx_priority" yaml:"tx_priority"`
	Realtime   bool `mapstructure:"realtime" yaml:"realtime"`
}

// SocketConfig sizes the kernel buffers.
type SocketConfig struct {
	RcvBufBytes int `mapstructure:"rcvbuf_bytes" yaml:"rcvbuf_bytes"`
	SndBufBytes int `mapstructure:"sndbuf_bytes" yaml:"sndbuf_bytes"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// TraceConfig controls the pcap trace of received datagrams.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"`
}

// RecorderConfig controls the stats-snapshot history.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DBFile  string `mapstructure:"db_file" yaml:"db_file"`
	CSVFile string `mapstructure:"csv_file" yaml:"csv_file"`
}

// SrcAddr parses the validated local address.
func (c *Config) SrcAddr() (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(c.Peer.Src)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid src %q: %w", c.Peer.Src, err)
	}
	return ap, nil
}

// DstAddr parses the validated remote address.
func (c *Config) DstAddr() (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(c.Peer.Dst)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid dst %q: %w", c.Peer.Dst, err)
	}
	return ap, nil
}

// Validate checks the fields that have no usable zero value.
func (c *Config) Validate() error {
	if _, err := c.SrcAddr(); err != nil {
		return err
	}
	if _, err := c.DstAddr(); err != nil {
		return err
	}
	if len(c.Peer.Payload) > 256 {
		return fmt.Errorf("payload length %d exceeds 256", len(c.Peer.Payload))
	}
	if c.Timing.TxIntervalMs == 0 {
		return fmt.Errorf("tx_interval_ms must be positive")
	}
	if c.Timing.CommTimeoutMs == 0 {
		return fmt.Errorf("comm_timeout_ms must be positive")
	}
	for _, p := range []int{c.Threads.RxPriority, c.Threads.TxPriority} {
		if p < 0 || p > 99 {
			return fmt.Errorf("real-time priority %d outside 0..99", p)
		}
	}
	return nil
}
