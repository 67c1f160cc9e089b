package procfile

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// NewIOReader reads /proc/<pid>/io and reports the app.disk.bytes and
// app.disk.requests metrics. The io file exists on kernels 2.6.20 and later.
func NewIOReader(pid int, log *zap.SugaredLogger) Gatherer {
	return newFileReader(pid, KindIO, "/proc/%d/io", parseIO, log)
}

// parseIO handles the "label: value" lines of the io file. Labels other
// than rchar/syscr/wchar/syscw are ignored.
func parseIO(r io.Reader, s metrics.Sample) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "rchar:":
			s[metrics.Key{Name: metrics.DiskBytes, Type: "read"}] = v
		case "syscr:":
			s[metrics.Key{Name: metrics.DiskRequests, Type: "read"}] = v
		case "wchar:":
			s[metrics.Key{Name: metrics.DiskBytes, Type: "write"}] = v
		case "syscw:":
			s[metrics.Key{Name: metrics.DiskRequests, Type: "write"}] = v
		}
	}
	return sc.Err()
}
