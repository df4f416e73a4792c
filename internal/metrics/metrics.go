// Package metrics holds the Prometheus collectors of the extraction pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docextract"

type Metrics struct {
	Documents     *prometheus.CounterVec
	Extractions   *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	CacheHits     prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Processed documents by record status.",
		}, []string{"status", "format"}),
		Extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction results by analysis method.",
		}, []string{"method"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallbacks_total",
			Help:      "LLM extractions that degraded to the regex strategy, by reason.",
		}, []string{"reason"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"stage"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_cache_hits_total",
			Help:      "Extractions served from the in-memory cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Documents, m.Extractions, m.Fallbacks, m.StageDuration, m.CacheHits)
	}
	return m
}

func (m *Metrics) ObserveDocument(status, format string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(status, format).Inc()
}

func (m *Metrics) ObserveExtraction(method string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(method).Inc()
}

func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}
