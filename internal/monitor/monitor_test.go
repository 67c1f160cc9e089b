package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
	"github.com/code-sauce/procmetrics/internal/monitor"
	"github.com/code-sauce/procmetrics/internal/procfile"
	"github.com/code-sauce/procmetrics/internal/proctrack"
)

type fixedSelector struct {
	set map[int]struct{}
}

func (s *fixedSelector) Select() map[int]struct{} { return s.set }

type recordingSink struct {
	values map[metrics.Key]float64
	dims   map[metrics.Key]map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		values: make(map[metrics.Key]float64),
		dims:   make(map[metrics.Key]map[string]string),
	}
}

func (s *recordingSink) EmitValue(name string, value float64, dims map[string]string) {
	key := metrics.Key{Name: name, Type: dims["type"]}
	s.values[key] = value
	s.dims[key] = dims
}

type stubGatherer struct {
	kind   procfile.Kind
	sample func() metrics.Sample
}

func (g *stubGatherer) Kind() procfile.Kind { return g.kind }

func (g *stubGatherer) Gather(s metrics.Sample) error {
	for k, v := range g.sample() {
		s[k] = v
	}
	return nil
}

func (g *stubGatherer) Close() {}

func TestMonitorRunCycleEmitsTotalsWithDimensions(t *testing.T) {
	log := zap.NewNop().Sugar()
	cpuUser := metrics.Key{Name: metrics.CPU, Type: "user"}
	thr := metrics.Key{Name: metrics.Threads}

	cpuByPid := map[int]float64{1: 100, 2: 300}
	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		return &stubGatherer{kind: kind, sample: func() metrics.Sample {
			return metrics.Sample{cpuUser: cpuByPid[pid], thr: 2}
		}}
	}, log)

	sel := &fixedSelector{set: map[int]struct{}{1: {}, 2: {}}}
	sink := newRecordingSink()
	mon := monitor.New("tomcat", sel, store, sink, []procfile.Kind{procfile.KindStat}, log)

	mon.RunCycle()

	require.Contains(t, sink.values, thr)
	assert.Equal(t, float64(4), sink.values[thr], "both processes report 2 threads")
	assert.Equal(t, map[string]string{"app": "tomcat"}, sink.dims[thr])
	assert.Equal(t, map[string]string{"app": "tomcat", "type": "user"}, sink.dims[cpuUser])
	assert.Equal(t, float64(0), sink.values[cpuUser], "no cpu delta on the first cycle")

	cpuByPid[1] = 130
	cpuByPid[2] = 350
	mon.RunCycle()
	assert.Equal(t, float64(80), sink.values[cpuUser])

	totals := mon.Totals()
	assert.Equal(t, float64(80), totals[cpuUser])
	assert.Equal(t, float64(4), totals[thr])
}

func TestMonitorDropsReadersOfDeselectedPids(t *testing.T) {
	log := zap.NewNop().Sugar()
	created := make(map[int]int)
	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		created[pid]++
		return &stubGatherer{kind: kind, sample: func() metrics.Sample {
			return metrics.Sample{{Name: metrics.Threads}: 1}
		}}
	}, log)

	sel := &fixedSelector{set: map[int]struct{}{1: {}, 2: {}}}
	mon := monitor.New("app", sel, store, newRecordingSink(), []procfile.Kind{procfile.KindStat}, log)

	mon.RunCycle()
	mon.RunCycle()
	assert.Equal(t, 1, created[1])
	assert.Equal(t, 1, created[2])

	// pid 2 leaves and comes back: its reader was discarded, so a fresh one
	// is built while pid 1 keeps its original.
	sel.set = map[int]struct{}{1: {}}
	mon.RunCycle()
	sel.set = map[int]struct{}{1: {}, 2: {}}
	mon.RunCycle()

	assert.Equal(t, 1, created[1])
	assert.Equal(t, 2, created[2])
}
