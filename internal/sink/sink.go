// Package sink defines where the datapath emits its observable
// output: packet/event records, periodic dashboard snapshots and the
// shutdown summary. The core only depends on the interface, so the
// embedding decides how (or whether) anything is rendered.
package sink

import "firestige.xyz/pulse/internal/stats"

// Summary is the final accounting printed on shutdown.
type Summary struct {
	RxPackets uint64
	TxPackets uint64
	RxDrops   uint64
	TxDrops   uint64

	RxLatency  stats.Result
	TxLatency  stats.Result
	RxInterval stats.Result
}

// Sink receives the core's structured output. Implementations must be
// safe for concurrent use: the RX worker and the main thread both call
// Log.
type Sink interface {
	// Log emits one textual packet/event record.
	Log(line string)

	// UpdateDashboard delivers the periodic statistics triple.
	UpdateDashboard(tx, rx, interval stats.Result)

	// Summarize delivers the shutdown summary.
	Summarize(s Summary)
}
