package procfile

import (
	"fmt"
	"os"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// fdReader counts the entries of /proc/<pid>/fd. It is not a file parser and
// keeps no handle: the directory is listed fresh every cycle, and a listing
// error only loses that cycle's value.
type fdReader struct {
	pid  int
	path string
}

// NewFDReader reports app.io.fds{open}, the number of file descriptors the
// process holds open.
func NewFDReader(pid int) Gatherer {
	return &fdReader{pid: pid, path: fmt.Sprintf("/proc/%d/fd", pid)}
}

func (r *fdReader) Kind() Kind { return KindFD }

func (r *fdReader) Gather(s metrics.Sample) error {
	entries, err := os.ReadDir(r.path)
	if err != nil {
		return fmt.Errorf("count fds of pid %d: %w", r.pid, err)
	}
	s[metrics.Key{Name: metrics.OpenFDs, Type: "open"}] = float64(len(entries))
	return nil
}

func (r *fdReader) Close() {}
