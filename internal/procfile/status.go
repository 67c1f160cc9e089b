package procfile

import (
	"bufio"
	"io"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

var statusLine = regexp.MustCompile(`^(\w+):\s*(\d+)`)

var memTypes = []string{"vmsize", "peak_vmsize", "resident", "peak_resident"}

// NewStatusReader reads /proc/<pid>/status and reports the app.mem.bytes
// metrics.
func NewStatusReader(pid int, log *zap.SugaredLogger) Gatherer {
	return newFileReader(pid, KindStatus, "/proc/%d/status", parseStatus, log)
}

// parseStatus scans the "Key: value" block for the first line with a numeric
// value, converts it from kilobytes to bytes and reports it under every
// memory subtype, then stops. This mirrors the historic monitor behavior;
// it does not map VmSize/VmRSS/VmPeak/VmHWM to their individual subtypes.
func parseStatus(r io.Reader, s metrics.Sample) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := statusLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		for _, typ := range memTypes {
			s[metrics.Key{Name: metrics.MemBytes, Type: typ}] = v * 1024
		}
		return nil
	}
	return sc.Err()
}
