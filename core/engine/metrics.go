package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors updated by the engine.
type Metrics struct {
	DocumentsIngested prometheus.Counter
	DocumentsDeleted  prometheus.Counter
	// ChunksIngested is labelled by result: added or skipped.
	ChunksIngested *prometheus.CounterVec
	Queries        prometheus.Counter
	CacheHits      prometheus.Counter
	QueryLatency   prometheus.Histogram
	AnchorFailures prometheus.Counter
	// LLMRequests is labelled by provider and outcome: success or failure.
	LLMRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dharmarag_documents_ingested_total",
			Help: "Total number of documents ingested",
		}),
		DocumentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dharmarag_documents_deleted_total",
			Help: "Total number of documents deleted",
		}),
		ChunksIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dharmarag_chunks_ingested_total",
			Help: "Chunks written or skipped during ingestion",
		}, []string{"result"}),
		Queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dharmarag_queries_total",
			Help: "Total number of retrieval queries",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dharmarag_query_cache_hits_total",
			Help: "Retrieval queries answered from the cache",
		}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dharmarag_query_duration_seconds",
			Help:    "Duration of ranked retrieval",
			Buckets: prometheus.DefBuckets,
		}),
		AnchorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dharmarag_anchor_lookup_failures_total",
			Help: "Supplemental anchor lookups that failed",
		}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dharmarag_llm_requests_total",
			Help: "Language model requests by provider and outcome",
		}, []string{"provider", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DocumentsIngested,
			m.DocumentsDeleted,
			m.ChunksIngested,
			m.Queries,
			m.CacheHits,
			m.QueryLatency,
			m.AnchorFailures,
			m.LLMRequests,
		)
	}

	return m
}
