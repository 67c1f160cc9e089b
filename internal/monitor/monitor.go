// Package monitor drives one collection cycle end to end: select the
// processes, collect their samples, fold them into the running totals and
// emit the result.
package monitor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
	"github.com/code-sauce/procmetrics/internal/procfile"
	"github.com/code-sauce/procmetrics/internal/proctrack"
)

// Sink receives the emitted metric values. Emission is a pure side effect;
// implementations must not fail for any value.
type Sink interface {
	EmitValue(name string, value float64, dims map[string]string)
}

// Selector resolves the configured match criteria into the set of live pids.
type Selector interface {
	Select() map[int]struct{}
}

// Monitor owns the cross-cycle state of one monitored process group. Cycles
// never overlap; the mutex only guards the totals against concurrent reads
// from the debug endpoint.
type Monitor struct {
	id       string
	selector Selector
	store    *proctrack.Store
	sink     Sink
	kinds    []procfile.Kind
	log      *zap.SugaredLogger

	mu  sync.RWMutex
	agg *Aggregator
}

func New(id string, selector Selector, store *proctrack.Store, sink Sink, kinds []procfile.Kind, log *zap.SugaredLogger) *Monitor {
	return &Monitor{
		id:       id,
		selector: selector,
		store:    store,
		sink:     sink,
		kinds:    kinds,
		log:      log,
		agg:      NewAggregator(),
	}
}

// RunCycle performs one full sampling cycle. It always runs to completion:
// every failure mode below the selector is handled locally by the readers
// and trackers.
func (m *Monitor) RunCycle() {
	running := m.selector.Select()

	samples := make(map[int]metrics.Sample, len(running))
	for pid := range running {
		samples[pid] = m.store.TrackerFor(pid, m.kinds).Collect()
	}

	m.mu.Lock()
	for pid, sample := range samples {
		m.agg.Record(pid, sample)
	}
	m.agg.Advance(running)
	totals := m.agg.Totals()
	m.mu.Unlock()

	m.store.Retain(running)
	m.emit(totals)
}

// Totals exposes the current running totals to the debug endpoint.
func (m *Monitor) Totals() map[metrics.Key]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agg.Totals()
}

// emit reports every running total with the instance id as the app
// dimension and the subtype, when present, as the type dimension.
func (m *Monitor) emit(totals map[metrics.Key]float64) {
	for key, value := range totals {
		dims := map[string]string{"app": m.id}
		if key.Type != "" {
			dims["type"] = key.Type
		}
		m.sink.EmitValue(key.Name, value, dims)
	}
}

// LogSink emits metric values as structured log lines, the way the agent
// reports metrics when no other sink is wired in.
type LogSink struct {
	Log *zap.SugaredLogger
}

func (s LogSink) EmitValue(name string, value float64, dims map[string]string) {
	kvs := make([]interface{}, 0, 2+2*len(dims))
	kvs = append(kvs, "value", value)
	for k, v := range dims {
		kvs = append(kvs, k, v)
	}
	s.Log.Infow(name, kvs...)
}
