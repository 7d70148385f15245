// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsTotal counts datagrams moved by the workers, by direction.
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_packets_total",
			Help: "Total number of datagrams received/sent",
		},
		[]string{"direction"},
	)

	// DropsTotal counts packets dropped at the rings or the socket.
	DropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_drops_total",
			Help: "Total number of dropped packets",
		},
		[]string{"direction"},
	)

	// DecodeErrorsTotal counts rejected frames by error kind.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_decode_errors_total",
			Help: "Total number of frames rejected by the decoder",
		},
		[]string{"kind"},
	)

	// CommLost is 1 while the peer lifesign is frozen past the timeout.
	CommLost = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_comm_lost",
			Help: "Loss-of-communication state (0/1)",
		},
	)

	// CommUnstable is 1 while the last interval fell outside tolerance.
	CommUnstable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_comm_unstable",
			Help: "Communication stability state (0/1)",
		},
	)

	// LatencyPercentileUs republishes the histogram snapshots on each
	// stats report tick.
	LatencyPercentileUs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_latency_percentile_us",
			Help: "Latency percentiles in microseconds per metric",
		},
		[]string{"metric", "quantile"},
	)
)

// BoolValue converts a flag for the 0/1 gauges.
func BoolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
