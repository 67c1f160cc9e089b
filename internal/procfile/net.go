package procfile

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// The kernel reports netstat and sockstat under /proc/<pid>/net, but their
// counters are network-namespace wide, not per process. Both readers are
// implemented for completeness and stay out of the default reader set.

// NewNetStatReader reads /proc/<pid>/net/netstat and reports
// app.net.bytes{in,out} and app.net.tcp_retransmits.
func NewNetStatReader(pid int, log *zap.SugaredLogger) Gatherer {
	return newFileReader(pid, KindNetStat, "/proc/%d/net/netstat", parseNetStat, log)
}

// NewSockStatReader reads /proc/<pid>/net/sockstat and reports
// app.net.sockets_in_use per socket type.
func NewSockStatReader(pid int, log *zap.SugaredLogger) Gatherer {
	return newFileReader(pid, KindSockStat, "/proc/%d/net/sockstat", parseSockStat, log)
}

// parseNetStat handles the paired header/value line format: a line of column
// names followed by a line of values, both prefixed with the same row name.
func parseNetStat(r io.Reader, s metrics.Sample) error {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}

	var names, values []string
	for i := 0; i+1 < len(lines); i++ {
		nameFields := strings.Fields(lines[i])
		valueFields := strings.Fields(lines[i+1])
		if len(nameFields) == 0 || len(nameFields) != len(valueFields) || nameFields[0] != valueFields[0] {
			continue
		}
		names = append(names, nameFields...)
		values = append(values, valueFields...)
	}

	// Reno and selective-ack recoveries are added together into a single
	// retransmit count.
	var retransmits float64
	foundRetransmit := false

	for i, name := range names {
		v, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			continue
		}
		switch name {
		case "InOctets":
			s[metrics.Key{Name: metrics.NetBytes, Type: "in"}] = v
		case "OutOctets":
			s[metrics.Key{Name: metrics.NetBytes, Type: "out"}] = v
		case "TCPRenoRecovery", "TCPSackRecovery":
			retransmits += v
			foundRetransmit = true
		}
	}
	if foundRetransmit {
		s[metrics.Key{Name: metrics.TCPRetransmits}] = retransmits
	}
	return nil
}

var sockStatLine = regexp.MustCompile(`(\w+): inuse (\d+)`)

func parseSockStat(r io.Reader, s metrics.Sample) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := sockStatLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		s[metrics.Key{Name: metrics.SocketsInUse, Type: strings.ToLower(m[1])}] = v
	}
	return sc.Err()
}
