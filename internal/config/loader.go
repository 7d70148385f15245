package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Defaults mirror the reference bench setup: 100 ms lifesign cadence,
// 1 s loss timeout, 5 ms jitter tolerance, RX/TX pinned to cores 2/3
// with SCHED_FIFO 80/70, 2 MiB / 1 MiB socket buffers.
func setDefaults(v *viper.Viper) {
	v.SetDefault("peer.unique_id", 0x12345678)
	v.SetDefault("peer.payload", "pulse lifesign")

	v.SetDefault("timing.tx_interval_ms", 100)
	v.SetDefault("timing.monitor_interval_ms", 200)
	v.SetDefault("timing.stats_interval_ms", 250)
	v.SetDefault("timing.drain_interval_ms", 100)
	v.SetDefault("timing.comm_timeout_ms", 1000)
	v.SetDefault("timing.tolerance_us", 5000)

	v.SetDefault("threads.rx_cpu_core", 2)
	v.SetDefault("threads.tx_cpu_core", 3)
	v.SetDefault("threads.rx_priority", 80)
	v.SetDefault("threads.tx_priority", 70)
	v.SetDefault("threads.realtime", true)

	v.SetDefault("socket.rcvbuf_bytes", 2*1024*1024)
	v.SetDefault("socket.sndbuf_bytes", 1*1024*1024)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "0.0.0.0:9101")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.file", "pulse.pcap")

	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.db_file", "pulse-stats.db")
	v.SetDefault("recorder.csv_file", "")
}

// Load reads the YAML config at path and overlays it on the defaults.
// An empty path returns pure defaults; a missing file is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
