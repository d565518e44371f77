// Package metrics holds the Prometheus collectors for the dialogue pipeline.
//
// Metrics:
//   - medchat_turns_total{outcome,followup} - completed turns by generation outcome
//   - medchat_retrieval_total{strategy} - retrieval strategy used per turn
//   - medchat_stage_duration_seconds{stage} - time spent in each pipeline stage
//   - medchat_documents_ingested_total - documents chunked and indexed
//   - medchat_ingested_chunks_total - chunks appended to document indexes
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal        *prometheus.CounterVec
	RetrievalTotal    *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	DocumentsIngested prometheus.Counter
	ChunksIngested    prometheus.Counter
}

// New registers every collector on a private registry so tests can build as many as they like
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medchat_turns_total",
				Help: "Total number of completed dialogue turns",
			},
			[]string{"outcome", "followup"},
		),
		RetrievalTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medchat_retrieval_total",
				Help: "Total number of retrievals by strategy",
			},
			[]string{"strategy"}, // summary, search, full_corpus, none
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medchat_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		DocumentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "medchat_documents_ingested_total",
			Help: "Total number of documents ingested",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "medchat_ingested_chunks_total",
			Help: "Total number of chunks appended to document indexes",
		}),
	}
}

func (m *Metrics) ObserveTurn(outcome string, followupRequired bool) {
	m.TurnsTotal.WithLabelValues(outcome, strconv.FormatBool(followupRequired)).Inc()
}

func (m *Metrics) ObserveRetrieval(strategy string) {
	m.RetrievalTotal.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveIngest(chunks int) {
	m.DocumentsIngested.Inc()
	m.ChunksIngested.Add(float64(chunks))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
