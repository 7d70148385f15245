package stats

import (
	"fmt"
	"strings"
)

// Result holds the computed summary of one histogram snapshot. All
// values are microseconds except Count.
type Result struct {
	Count   uint64
	MinUs   float64
	MaxUs   float64
	MeanUs  float64
	StdevUs float64
	P50Us   float64
	P95Us   float64
	P99Us   float64
	P999Us  float64
	P9999Us float64
}

const barWidth = 20

// Table renders the result as the fixed-width box used on the console
// dashboard and in the shutdown summary.
func (r Result) Table(label string) string {
	if r.Count == 0 {
		return fmt.Sprintf("[%s] no samples collected\n", label)
	}

	var b strings.Builder
	row := func(name string, v float64) {
		fmt.Fprintf(&b, "| %-7s: %10.2f us %s |\n", name, v, bar(v, r.MinUs, r.MaxUs))
	}

	rule := "+" + strings.Repeat("-", 46) + "+"
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "| %-44s |\n", label+" statistics")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "| %-7s: %-34d |\n", "samples", r.Count)
	row("min", r.MinUs)
	row("max", r.MaxUs)
	row("mean", r.MeanUs)
	fmt.Fprintf(&b, "| %-7s: %10.2f us %-20s |\n", "stdev", r.StdevUs, "")
	fmt.Fprintln(&b, rule)
	row("p50", r.P50Us)
	row("p95", r.P95Us)
	row("p99", r.P99Us)
	row("p99.9", r.P999Us)
	row("p99.99", r.P9999Us)
	fmt.Fprintln(&b, rule)
	return b.String()
}

// CSV renders the result as one data line matching CSVHeader.
func (r Result) CSV(label string) string {
	return fmt.Sprintf("%s,%d,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f\n",
		label, r.Count,
		r.MinUs, r.MaxUs, r.MeanUs, r.StdevUs,
		r.P50Us, r.P95Us, r.P99Us, r.P999Us, r.P9999Us)
}

// CSVHeader returns the column header for CSV export.
func CSVHeader() string {
	return "label,count,min_us,max_us,mean_us,stdev_us,p50_us,p95_us,p99_us,p999_us,p9999_us\n"
}

func bar(v, min, max float64) string {
	if max <= min {
		return strings.Repeat("#", barWidth)
	}
	filled := int((v - min) / (max - min) * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
}
