package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SentencesProcessed counts sentences the run advanced past
	SentencesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corrupt_sentences_processed_total",
			Help: "Total number of sentences processed",
		},
	)

	// SentencesCorrupted counts persisted corruption records per rule
	SentencesCorrupted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corrupt_sentences_corrupted_total",
			Help: "Total number of corrupted sentences written",
		},
		[]string{"rule"},
	)

	// SentencesSkipped counts sentences no rule matched
	SentencesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corrupt_sentences_skipped_total",
			Help: "Total number of sentences without a matching rule",
		},
	)

	// AnnotationFailures counts transient annotation errors
	AnnotationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corrupt_annotation_failures_total",
			Help: "Total number of failed annotation requests",
		},
	)

	// AnnotationDegraded counts annotations the rules could only partially use
	AnnotationDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corrupt_annotation_degraded_total",
			Help: "Total number of malformed or misaligned annotations",
		},
		[]string{"reason"},
	)

	// AnnotationLatency tracks annotation round trips, cache hits included
	AnnotationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corrupt_annotation_latency_seconds",
			Help:    "Annotation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AnnotationCacheHits counts annotations served from the cache
	AnnotationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corrupt_annotation_cache_hits_total",
			Help: "Total number of annotations served from cache",
		},
	)

	// Cursor is the next sentence index to process
	Cursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corrupt_cursor",
			Help: "Next sentence index to process",
		},
	)

	// CorpusSize is the number of sentences in the loaded corpus
	CorpusSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corrupt_corpus_size",
			Help: "Number of sentences in the corpus",
		},
	)
)

const (
	ReasonMalformed  = "malformed"
	ReasonMisaligned = "misaligned"
	ReasonRulePanic  = "rule_panic"
)
