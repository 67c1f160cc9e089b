package proctrack_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
	"github.com/code-sauce/procmetrics/internal/procfile"
	"github.com/code-sauce/procmetrics/internal/proctrack"
)

type fakeGatherer struct {
	kind    procfile.Kind
	values  metrics.Sample
	err     error
	gathers int
	closed  bool
}

func (g *fakeGatherer) Kind() procfile.Kind { return g.kind }

func (g *fakeGatherer) Gather(s metrics.Sample) error {
	g.gathers++
	if g.err != nil {
		return g.err
	}
	for k, v := range g.values {
		s[k] = v
	}
	return nil
}

func (g *fakeGatherer) Close() { g.closed = true }

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestTrackerMergesReaderOutputs(t *testing.T) {
	cpu := metrics.Key{Name: metrics.CPU, Type: "user"}
	fds := metrics.Key{Name: metrics.OpenFDs, Type: "open"}

	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		switch kind {
		case procfile.KindStat:
			return &fakeGatherer{kind: kind, values: metrics.Sample{cpu: 10}}
		default:
			return &fakeGatherer{kind: kind, values: metrics.Sample{fds: 3}}
		}
	}, testLogger())

	tr := store.TrackerFor(7, []procfile.Kind{procfile.KindStat, procfile.KindFD})
	got := tr.Collect()

	require.Len(t, got, 2)
	assert.Equal(t, float64(10), got[cpu])
	assert.Equal(t, float64(3), got[fds])
}

func TestTrackerSkipsFailingReader(t *testing.T) {
	cpu := metrics.Key{Name: metrics.CPU, Type: "user"}

	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		if kind == procfile.KindIO {
			return &fakeGatherer{kind: kind, err: errors.New("boom")}
		}
		return &fakeGatherer{kind: kind, values: metrics.Sample{cpu: 42}}
	}, testLogger())

	tr := store.TrackerFor(7, []procfile.Kind{procfile.KindIO, procfile.KindStat})
	got := tr.Collect()

	require.Len(t, got, 1)
	assert.Equal(t, float64(42), got[cpu])
}

func TestStoreReusesReadersAcrossCycles(t *testing.T) {
	created := 0
	var gatherer *fakeGatherer
	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		created++
		gatherer = &fakeGatherer{kind: kind}
		return gatherer
	}, testLogger())

	kinds := []procfile.Kind{procfile.KindStat}
	store.TrackerFor(7, kinds).Collect()
	store.TrackerFor(7, kinds).Collect()

	assert.Equal(t, 1, created, "the same reader must back both cycles")
	assert.Equal(t, 2, gatherer.gathers)
}

func TestStoreRetainClosesDeadReaders(t *testing.T) {
	byPid := make(map[int]*fakeGatherer)
	store := proctrack.NewStoreWithFactory(func(pid int, kind procfile.Kind, _ *zap.SugaredLogger) procfile.Gatherer {
		g := &fakeGatherer{kind: kind}
		byPid[pid] = g
		return g
	}, testLogger())

	kinds := []procfile.Kind{procfile.KindStat}
	store.TrackerFor(1, kinds)
	store.TrackerFor(2, kinds)

	store.Retain(map[int]struct{}{1: {}})

	assert.False(t, byPid[1].closed)
	assert.True(t, byPid[2].closed)

	// A returning pid gets a fresh reader, not the closed one.
	store.TrackerFor(2, kinds)
	assert.False(t, byPid[2].closed)
}
