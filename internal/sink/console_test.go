package sink

import (
	"testing"

	"firestige.xyz/pulse/internal/stats"
)

func sampleResult() stats.Result {
	h := stats.NewHistogram(128)
	for i := 1; i <= 100; i++ {
		h.Record(uint64(i) * 1000)
	}
	return h.Compute()
}

func TestConsoleImplementsSink(t *testing.T) {
	var _ Sink = NewConsole(1)
}

func TestDashboardRateLimit(t *testing.T) {
	c := NewConsole(4)
	r := sampleResult()
	for i := 0; i < 8; i++ {
		c.UpdateDashboard(r, r, r)
	}
	if c.updates != 8 {
		t.Errorf("updates = %d, want 8", c.updates)
	}
}

func TestSummaryDoesNotPanicOnEmptyResults(t *testing.T) {
	c := NewConsole(1)
	c.Summarize(Summary{RxPackets: 1, TxPackets: 2})
	c.Log("event line\n")
}
