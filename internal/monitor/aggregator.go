package monitor

import (
	"github.com/code-sauce/procmetrics/internal/metrics"
)

// Aggregator folds per-process samples into one running-total view that
// survives processes starting and stopping between cycles. It keeps the two
// most recent values per (pid, metric): cumulative metrics only ever need
// the first difference of the latest pair, absolute metrics only the latest
// value.
type Aggregator struct {
	history map[int]map[metrics.Key][]float64
	totals  map[metrics.Key]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		history: make(map[int]map[metrics.Key][]float64),
		totals:  make(map[metrics.Key]float64),
	}
}

// Record appends the sample values to the pid's history, truncating each
// metric to its two most recent values.
func (a *Aggregator) Record(pid int, sample metrics.Sample) {
	if len(sample) == 0 {
		return
	}
	h, ok := a.history[pid]
	if !ok {
		h = make(map[metrics.Key][]float64)
		a.history[pid] = h
	}
	for key, value := range sample {
		values := append(h[key], value)
		if len(values) > 2 {
			values = values[len(values)-2:]
		}
		h[key] = values
	}
}

// Advance recomputes the running totals for the cycle whose samples have
// just been recorded, given the currently selected pid set: absolute totals
// are rebuilt from the latest values, cumulative totals are corrected
// incrementally, and finally the history of departed pids is purged. A dead
// pid therefore contributes its last known absolute value for exactly one
// more cycle after it disappears.
func (a *Aggregator) Advance(running map[int]struct{}) {
	a.resetAbsolute()
	a.recompute(running)
	a.purge(running)
}

// resetAbsolute zeroes the total of every absolute metric present in the
// history before the recompute pass re-adds the latest values. Cumulative
// totals are never zeroed.
func (a *Aggregator) resetAbsolute() {
	for _, h := range a.history {
		for key := range h {
			if !metrics.IsCumulative(key.Name) {
				a.totals[key] = 0
			}
		}
	}
}

func (a *Aggregator) recompute(running map[int]struct{}) {
	for pid, h := range a.history {
		_, alive := running[pid]
		for key, values := range h {
			if _, ok := a.totals[key]; !ok {
				a.totals[key] = 0
			}
			if !metrics.IsCumulative(key.Name) {
				a.totals[key] += values[len(values)-1]
				continue
			}
			if len(values) < 2 {
				// Newly observed process: no delta to apply yet.
				continue
			}
			delta := values[len(values)-1] - values[len(values)-2]
			if alive {
				a.totals[key] += delta
			} else {
				// The process died after its last delta was applied; back
				// that contribution out.
				a.totals[key] -= delta
			}
		}
	}
}

func (a *Aggregator) purge(running map[int]struct{}) {
	for pid := range a.history {
		if _, ok := running[pid]; !ok {
			delete(a.history, pid)
		}
	}
}

// Totals returns a copy of the current running totals.
func (a *Aggregator) Totals() map[metrics.Key]float64 {
	out := make(map[metrics.Key]float64, len(a.totals))
	for key, value := range a.totals {
		out[key] = value
	}
	return out
}
