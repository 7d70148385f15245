package sink

import (
	"fmt"
	"strings"

	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/stats"
)

// Console renders records through the process logger and the dashboard
// as percentile tables. Dashboard output is decimated so a 250 ms
// snapshot cadence stays readable on a scrolling terminal.
type Console struct {
	every   uint64
	updates uint64
}

// NewConsole creates a console sink printing every n-th dashboard
// update (n <= 1 prints all).
func NewConsole(every int) *Console {
	if every < 1 {
		every = 1
	}
	return &Console{every: uint64(every)}
}

func (c *Console) Log(line string) {
	log.GetLogger().Info(strings.TrimRight(line, "\n"))
}

func (c *Console) UpdateDashboard(tx, rx, interval stats.Result) {
	c.updates++
	if c.updates%c.every != 0 {
		return
	}
	fmt.Print(tx.Table("TX send latency"))
	fmt.Print(rx.Table("RX processing latency"))
	fmt.Print(interval.Table("RX inter-packet interval"))
}

func (c *Console) Summarize(s Summary) {
	fmt.Printf("\nshutdown summary\n"+
		"  RX packets: %d, dropped: %d\n"+
		"  TX packets: %d, dropped: %d\n\n",
		s.RxPackets, s.RxDrops, s.TxPackets, s.TxDrops)
	fmt.Print(s.RxLatency.Table("RX processing latency"))
	fmt.Print(s.TxLatency.Table("TX send latency"))
	fmt.Print(s.RxInterval.Table("RX inter-packet interval"))
}
