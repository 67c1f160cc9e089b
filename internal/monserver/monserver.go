// Package monserver exposes the agent's current running totals over a small
// HTTP debug surface.
package monserver

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// TotalsSource is anything that can report the current running totals.
type TotalsSource interface {
	Totals() map[metrics.Key]float64
}

type metricValue struct {
	Name  string  `json:"name"`
	Type  string  `json:"type,omitempty"`
	Value float64 `json:"value"`
}

// NewRouter builds the debug routes: GET /metrics with the totals as JSON
// and GET /healthz.
func NewRouter(src TotalsSource, log *zap.SugaredLogger) chi.Router {
	r := chi.NewRouter()
	r.Get("/metrics", metricsHandler(src, log))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return r
}

func metricsHandler(src TotalsSource, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		totals := src.Totals()

		values := make([]metricValue, 0, len(totals))
		for key, value := range totals {
			values = append(values, metricValue{Name: key.Name, Type: key.Type, Value: value})
		}
		sort.Slice(values, func(i, j int) bool {
			if values[i].Name != values[j].Name {
				return values[i].Name < values[j].Name
			}
			return values[i].Type < values[j].Type
		})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(values); err != nil {
			log.Errorf("write metrics response: %v", err)
		}
	}
}
