package pim

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// Profiler accumulates wall-clock samples per kernel or transfer name.
type Profiler struct {
	mu      sync.Mutex
	samples map[string][]float64 // milliseconds
}

// NewProfiler returns an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{samples: map[string][]float64{}}
}

// Observe records one sample for name.
func (p *Profiler) Observe(name string, d time.Duration) {
	p.mu.Lock()
	p.samples[name] = append(p.samples[name], float64(d.Nanoseconds())/1e6)
	p.mu.Unlock()
}

// Track starts a timer for name and returns the function that stops
// it, for use with defer.
func (p *Profiler) Track(name string) func() {
	start := time.Now()
	return func() {
		p.Observe(name, time.Since(start))
	}
}

// Reset drops all recorded samples.
func (p *Profiler) Reset() {
	p.mu.Lock()
	p.samples = map[string][]float64{}
	p.mu.Unlock()
}

// KernelStats summarizes the samples of one name. Durations are in
// milliseconds; Share is the fraction of the total time across all
// names.
type KernelStats struct {
	Name   string
	Count  int
	Total  float64
	Avg    float64
	Min    float64
	Max    float64
	StdDev float64
	Share  float64
}

// Report returns per-name statistics sorted by total time, largest
// first.
func (p *Profiler) Report() []KernelStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var grandTotal float64
	report := make([]KernelStats, 0, len(p.samples))
	for name, samples := range p.samples {
		total, _ := stats.Sum(samples)
		avg, _ := stats.Mean(samples)
		min, _ := stats.Min(samples)
		max, _ := stats.Max(samples)
		std, _ := stats.StandardDeviation(samples)
		report = append(report, KernelStats{
			Name:   name,
			Count:  len(samples),
			Total:  total,
			Avg:    avg,
			Min:    min,
			Max:    max,
			StdDev: std,
		})
		grandTotal += total
	}
	if grandTotal > 0 {
		for i := range report {
			report[i].Share = report[i].Total / grandTotal
		}
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Total > report[j].Total })
	return report
}

// String renders the report as a table.
func (p *Profiler) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %8s %12s %12s %12s %12s %12s %7s\n",
		"name", "count", "total(ms)", "avg(ms)", "min(ms)", "max(ms)", "std(ms)", "share")
	for _, ks := range p.Report() {
		fmt.Fprintf(&sb, "%-16s %8d %12.3f %12.4f %12.4f %12.4f %12.4f %6.1f%%\n",
			ks.Name, ks.Count, ks.Total, ks.Avg, ks.Min, ks.Max, ks.StdDev, 100*ks.Share)
	}
	return sb.String()
}
