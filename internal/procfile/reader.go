// Package procfile reads per-process /proc pseudo-files and parses their
// formats into metric samples. Each reader keeps its file handle open across
// collection cycles and re-seeks instead of reopening, because some proc
// files behave better that way.
package procfile

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// Kind names one per-process file format handled by a reader.
type Kind string

const (
	KindStat     Kind = "stat"
	KindStatus   Kind = "status"
	KindIO       Kind = "io"
	KindFD       Kind = "fd"
	KindNetStat  Kind = "netstat"
	KindSockStat Kind = "sockstat"
)

// DefaultKinds returns the reader set enabled for every tracked process.
func DefaultKinds() []Kind {
	return []Kind{KindStat, KindStatus, KindIO, KindFD}
}

// NetKinds returns the per-process network readers. The kernel reports these
// files system-wide rather than per process, so they stay off by default.
func NetKinds() []Kind {
	return []Kind{KindNetStat, KindSockStat}
}

// Gatherer is a per-process metric source polled once per collection cycle.
// Gather merges the values it reads into the given sample.
type Gatherer interface {
	Kind() Kind
	Gather(s metrics.Sample) error
	Close()
}

// New builds the reader of the given kind for one process id.
func New(pid int, kind Kind, log *zap.SugaredLogger) Gatherer {
	switch kind {
	case KindStat:
		return NewStatReader(pid, log)
	case KindStatus:
		return NewStatusReader(pid, log)
	case KindIO:
		return NewIOReader(pid, log)
	case KindFD:
		return NewFDReader(pid)
	case KindNetStat:
		return NewNetStatReader(pid, log)
	case KindSockStat:
		return NewSockStatReader(pid, log)
	}
	panic(fmt.Sprintf("unknown reader kind %q", kind))
}

type parseFunc func(r io.Reader, s metrics.Sample) error

// fileReader owns one open /proc file for one process. A permission or
// not-exist error on open disables the reader for good: neither condition
// clears up on its own, so there is no point retrying every cycle. Read
// errors are transient (the process likely exited mid-read); the handle is
// dropped and reopened on the next cycle.
type fileReader struct {
	pid    int
	kind   Kind
	path   string
	file   *os.File
	failed bool
	parse  parseFunc
	open   func(name string) (*os.File, error)
	log    *zap.SugaredLogger
}

func newFileReader(pid int, kind Kind, pattern string, parse parseFunc, log *zap.SugaredLogger) *fileReader {
	return &fileReader{
		pid:   pid,
		kind:  kind,
		path:  fmt.Sprintf(pattern, pid),
		parse: parse,
		open:  os.Open,
		log:   log,
	}
}

func (r *fileReader) Kind() Kind { return r.kind }

func (r *fileReader) Gather(s metrics.Sample) error {
	if r.failed {
		return nil
	}

	if r.file == nil {
		f, err := r.open(r.path)
		switch {
		case err == nil:
			r.file = f
		case os.IsPermission(err):
			r.failed = true
			r.log.Errorf("no permission to read %s, the agent may need to run as root", r.path)
			return nil
		case os.IsNotExist(err):
			r.failed = true
			r.log.Errorf("cannot read %s, this kernel may not expose that proc file", r.path)
			return nil
		default:
			return fmt.Errorf("open %s: %w", r.path, err)
		}
	}

	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		r.log.Errorf("error gathering sample from %s: %v", r.path, err)
		r.dropFile()
		return nil
	}
	if err := r.parse(r.file, s); err != nil {
		r.log.Errorf("error gathering sample from %s: %v", r.path, err)
		r.dropFile()
		return nil
	}
	return nil
}

func (r *fileReader) dropFile() {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}

// Close releases the open handle, if any. The reader may still be reused
// afterwards; Gather reopens on demand.
func (r *fileReader) Close() { r.dropFile() }
