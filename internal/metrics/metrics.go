// Package metrics holds the data model shared by the collectors and the
// aggregator: metric keys, per-cycle samples and the metric class table.
package metrics

// Metric names reported by the process monitor.
const (
	CPU            = "app.cpu"
	Uptime         = "app.uptime"
	Threads        = "app.threads"
	Nice           = "app.nice"
	MemBytes       = "app.mem.bytes"
	DiskBytes      = "app.disk.bytes"
	DiskRequests   = "app.disk.requests"
	OpenFDs        = "app.io.fds"
	NetBytes       = "app.net.bytes"
	TCPRetransmits = "app.net.tcp_retransmits"
	SocketsInUse   = "app.net.sockets_in_use"
)

// Key identifies one metric line: a metric name plus an optional subtype
// (user/system, read/write, vmsize/resident and so on). An empty Type means
// the metric has no subtype dimension.
type Key struct {
	Name string
	Type string
}

// Sample is one process's metric values for one collection cycle. A key that
// is absent was not observed this cycle, which is not the same as zero.
type Sample map[Key]float64

// cumulative lists the metrics whose kernel counters only ever grow; the
// aggregator works with their per-cycle deltas instead of their raw values.
// The classification is fixed, never auto-detected.
var cumulative = map[string]bool{
	CPU: true,
}

// IsCumulative reports whether the named metric is a monotonically
// non-decreasing counter. Everything else is an absolute gauge.
func IsCumulative(name string) bool {
	return cumulative[name]
}
