// Package metrics holds the Prometheus collectors for corpus builds and queries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "physiology_rag"

// Query outcomes.
const (
	QueryFound  = "found"
	QueryEmpty  = "empty"
	QueryFailed = "failed"
)

// Metrics owns a registry and the collectors registered on it. All methods are
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	chunksBuilt    prometheus.Counter
	chunksOversize prometheus.Counter
	documents      *prometheus.CounterVec
	embedBatches   *prometheus.CounterVec
	retries        *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	corpusChunks   prometheus.Gauge
	queries        *prometheus.CounterVec
	queryDuration  prometheus.Histogram
	assembledChars prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_built_total",
			Help: "Chunks produced by corpus builds.",
		}),
		chunksOversize: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_oversized_total",
			Help: "Chunks kept above the maximum size because they had no split point.",
		}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_built_total",
			Help: "Documents chunked, by segmentation mode.",
		}, []string{"mode"}),
		embedBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "embed_batches_total",
			Help: "Embedding batches, by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "retries_total",
			Help: "Retried calls to external services, by operation.",
		}, []string{"op"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "build_duration_seconds",
			Help:    "Wall time of corpus builds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		corpusChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "corpus_chunks",
			Help: "Chunks in the most recently built corpus.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total",
			Help: "Answered questions, by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help:    "Wall time from question to answer.",
			Buckets: prometheus.DefBuckets,
		}),
		assembledChars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "assembled_context_chars",
			Help:    "Size of the context block handed to the generator.",
			Buckets: prometheus.LinearBuckets(250, 250, 12),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "embedding_cache_lookups_total",
			Help: "Embedding cache lookups, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chunksBuilt, m.chunksOversize, m.documents, m.embedBatches, m.retries,
		m.buildDuration, m.corpusChunks, m.queries, m.queryDuration, m.assembledChars,
		m.cacheLookups,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocument records one chunked document.
func (m *Metrics) ObserveDocument(mode string, chunks, oversized int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(mode).Inc()
	m.chunksBuilt.Add(float64(chunks))
	m.chunksOversize.Add(float64(oversized))
}

// ObserveBuild records a finished build.
func (m *Metrics) ObserveBuild(seconds float64, corpusChunks int) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(seconds)
	m.corpusChunks.Set(float64(corpusChunks))
}

// EmbedBatch records an embedding batch result.
func (m *Metrics) EmbedBatch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.embedBatches.WithLabelValues(result).Inc()
}

// Retry records one retry of op.
func (m *Metrics) Retry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

// ObserveQuery records a question's outcome and latency.
func (m *Metrics) ObserveQuery(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(seconds)
}

// ObserveAssembly records the size of an assembled context in runes.
func (m *Metrics) ObserveAssembly(chars int) {
	if m == nil {
		return
	}
	m.assembledChars.Observe(float64(chars))
}

// CacheLookup records an embedding cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
