package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_documents_processed_total",
		Help: "The total number of documents processed by outcome",
	}, []string{"outcome"})

	DocumentRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_document_rejections_total",
		Help: "Rejected documents by the stage that rejected them",
	}, []string{"reason"})

	DuplicateRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dupcheck_duplicate_ratio",
		Help:    "Run-length weighted duplicate ratio of processed documents",
		Buckets: []float64{0, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 2, 5},
	})

	DocumentProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dupcheck_document_processing_seconds",
		Help:    "Time spent processing one document",
		Buckets: prometheus.DefBuckets,
	})

	SentenceVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_sentence_verdicts_total",
		Help: "Per-sentence verdicts by detecting tier",
	}, []string{"method"})

	EmbeddingTierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_tier_failures_total",
		Help: "Embedding checks that failed open",
	}, []string{"stage"})

	EmbeddingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_cache_lookups_total",
		Help: "Embedding cache lookups by result",
	}, []string{"result"})

	CorpusSentences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dupcheck_corpus_sentences",
		Help: "Number of unique sentences in the corpus cache",
	})

	CorpusDocumentEmbeddings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dupcheck_corpus_document_embeddings",
		Help: "Number of stored document embeddings",
	})

	SnapshotSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dupcheck_snapshot_save_seconds",
		Help:    "Duration of corpus snapshot saves",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	SnapshotBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dupcheck_snapshot_bytes",
		Help: "Size of the last saved corpus snapshot",
	})

	ArchivedDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dupcheck_archived_documents",
		Help: "Number of documents in the archive",
	})

	InboxFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_inbox_files_total",
		Help: "Inbox files handled by outcome",
	}, []string{"status"})

	WorkerIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_worker_iterations_total",
		Help: "Worker loop iterations by outcome",
	}, []string{"worker", "outcome"})

	WorkerBackoff = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dupcheck_worker_backoff_seconds",
		Help: "Current wait before the next worker iteration",
	}, []string{"worker"})

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "model", "status"})

	EmbeddingTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_tokens_total",
		Help: "Total number of tokens processed for embeddings",
	}, []string{"provider", "model"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dupcheck_embedding_latency_seconds",
		Help:    "Latency of embedding requests by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_estimated_cost_millicents_total",
		Help: "Estimated embedding cost in millicents (0.001 cents)",
	}, []string{"provider", "model"})

	EmbeddingProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dupcheck_embedding_provider_available",
		Help: "Whether embedding provider is currently available (0=no, 1=yes)",
	}, []string{"provider"})

	EmbeddingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dupcheck_embedding_fallbacks_total",
		Help: "Total number of embedding fallback events",
	}, []string{"from_provider", "to_provider"})
)
