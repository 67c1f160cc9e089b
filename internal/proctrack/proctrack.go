// Package proctrack runs the reader set of a single process and owns reader
// lifetimes across collection cycles.
package proctrack

import (
	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
	"github.com/code-sauce/procmetrics/internal/procfile"
)

// Factory builds the reader of one kind for one pid.
type Factory func(pid int, kind procfile.Kind, log *zap.SugaredLogger) procfile.Gatherer

type readerKey struct {
	pid  int
	kind procfile.Kind
}

// Store keys readers by (pid, kind) so a reader's accumulated state — its
// open handle and its permanent-failure flag — survives even though trackers
// are rebuilt from scratch every cycle.
type Store struct {
	factory Factory
	readers map[readerKey]procfile.Gatherer
	log     *zap.SugaredLogger
}

func NewStore(log *zap.SugaredLogger) *Store {
	return NewStoreWithFactory(procfile.New, log)
}

func NewStoreWithFactory(factory Factory, log *zap.SugaredLogger) *Store {
	return &Store{factory: factory, readers: make(map[readerKey]procfile.Gatherer), log: log}
}

// TrackerFor returns a tracker for the pid backed by the stored readers of
// the given kinds, creating any that do not exist yet.
func (s *Store) TrackerFor(pid int, kinds []procfile.Kind) *Tracker {
	gatherers := make([]procfile.Gatherer, 0, len(kinds))
	for _, kind := range kinds {
		key := readerKey{pid: pid, kind: kind}
		g, ok := s.readers[key]
		if !ok {
			g = s.factory(pid, kind, s.log)
			s.readers[key] = g
		}
		gatherers = append(gatherers, g)
	}
	return &Tracker{Pid: pid, gatherers: gatherers, log: s.log}
}

// Retain closes and discards the readers of every pid that is no longer
// selected.
func (s *Store) Retain(alive map[int]struct{}) {
	for key, g := range s.readers {
		if _, ok := alive[key.pid]; !ok {
			g.Close()
			delete(s.readers, key)
		}
	}
}

// Tracker gathers the metrics of one process for one cycle.
type Tracker struct {
	Pid       int
	gatherers []procfile.Gatherer
	log       *zap.SugaredLogger
}

// Collect polls every reader and merges their values into a single sample.
// A failing reader is logged and skipped; the remaining readers still run,
// so the sample may simply be missing that reader's keys this cycle.
func (t *Tracker) Collect() metrics.Sample {
	sample := make(metrics.Sample)
	for _, g := range t.gatherers {
		if err := g.Gather(sample); err != nil {
			t.log.Errorf("error collecting %s metrics for pid %d: %v", g.Kind(), t.Pid, err)
		}
	}
	return sample
}
