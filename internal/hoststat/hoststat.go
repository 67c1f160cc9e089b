// Package hoststat gathers a few host-level gauges so the agent can report
// the machine's overall load next to the per-process metrics.
package hoststat

import (
	"strconv"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Collect returns per-CPU utilization percentages and the virtual memory
// totals, keyed by metric name.
func Collect() (map[string]float64, error) {
	out := make(map[string]float64)

	percentage, err := cpu.Percent(0, true)
	if err != nil {
		return nil, err
	}
	for i, p := range percentage {
		out["host.cpu.utilization"+strconv.Itoa(i+1)] = p
	}

	memory, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	out["host.mem.total"] = float64(memory.Total)
	out["host.mem.free"] = float64(memory.Free)

	return out, nil
}
