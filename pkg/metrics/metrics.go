// Package metrics defines the Prometheus collectors used by the scraper and
// the corpus pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	FetchRequestsTotal  *prometheus.CounterVec
	FetchRetriesTotal   prometheus.Counter
	FetchCacheHits      prometheus.Counter
	FetchCacheMisses    prometheus.Counter
	RecordsScrapedTotal *prometheus.CounterVec
	DeletedSubtrees     prometheus.Counter
	PipelineRunsTotal   *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	DocumentsProcessed  *prometheus.GaugeVec
	VocabularySize      prometheus.Gauge
	MatrixNonZero       *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses
// the process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	m := &Metrics{
		FetchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_fetch_requests_total",
				Help: "Forum API requests by endpoint and outcome (ok, transient, fatal).",
			},
			[]string{"endpoint", "outcome"},
		),
		FetchRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_fetch_retries_total",
				Help: "Fetch attempts that failed transiently and were retried.",
			},
		),
		FetchCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_fetch_cache_hits_total",
				Help: "Forum responses served from the response cache.",
			},
		),
		FetchCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_fetch_cache_misses_total",
				Help: "Forum responses not found in the response cache.",
			},
		),
		RecordsScrapedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_records_scraped_total",
				Help: "Raw records persisted by kind (submission, comment).",
			},
			[]string{"kind"},
		),
		DeletedSubtrees: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_deleted_subtrees_total",
				Help: "Comment subtrees skipped because their root was deleted.",
			},
		),
		PipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_pipeline_runs_total",
				Help: "Corpus pipeline runs by status (success, failure).",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpus_pipeline_stage_duration_seconds",
				Help:    "Duration of each corpus pipeline stage.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		DocumentsProcessed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Documents in each corpus during the last run.",
			},
			[]string{"corpus"},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_vocabulary_size",
				Help: "Terms retained in the shared vocabulary during the last run.",
			},
		),
		MatrixNonZero: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_matrix_nonzero",
				Help: "Stored non-zero cells per document-term matrix.",
			},
			[]string{"matrix"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.FetchRequestsTotal,
		m.FetchRetriesTotal,
		m.FetchCacheHits,
		m.FetchCacheMisses,
		m.RecordsScrapedTotal,
		m.DeletedSubtrees,
		m.PipelineRunsTotal,
		m.StageDuration,
		m.DocumentsProcessed,
		m.VocabularySize,
		m.MatrixNonZero,
	)
	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
