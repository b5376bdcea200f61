// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires the corpus store, the embedding tier and the detector
// together and exposes the operational modes:
//
//   - Serve mode: HTTP API plus health and metrics endpoints
//   - Watch mode: polls an inbox directory for documents
//   - One-shot use from the CLI through Detector
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/api"
	"github.com/lueurxax/dupcheck/internal/core/embeddings"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/platform/config"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
	"github.com/lueurxax/dupcheck/internal/platform/worker"
	"github.com/lueurxax/dupcheck/internal/process/inbox"
	"github.com/lueurxax/dupcheck/internal/process/pipeline"
	"github.com/lueurxax/dupcheck/internal/process/scoring"
	db "github.com/lueurxax/dupcheck/internal/storage"
	"github.com/lueurxax/dupcheck/internal/storage/badgerstore"
	"github.com/lueurxax/dupcheck/internal/storage/memory"
	"github.com/lueurxax/dupcheck/internal/storage/sqlitestore"
)

const (
	embeddingPingTimeout  = 15 * time.Second
	archiveGaugeInterval  = time.Minute
	archiveGaugeTimeout   = 10 * time.Second
	logFieldBackend       = "backend"
	logFieldComponent     = "component"
	logFieldCorpusSize    = "corpus_size"
	logFieldEmbeddingTier = "embedding_tier"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	store    ports.Store
	closers  []func()
	detector *pipeline.Detector
	logger   *zerolog.Logger
}

// New opens the configured store, probes the embedding tier and restores the
// detector from the latest snapshot.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	settings := Settings(cfg)

	var (
		embedder  pipeline.Embedder
		available bool
	)

	if settings.EmbeddingEnabled {
		service := a.newEmbeddingService()
		embedder = service
		available = a.probeEmbedding(ctx, service)
	}

	detector, err := pipeline.Load(ctx, settings, pipeline.Options{
		Embedder:           embedder,
		EmbeddingAvailable: available,
		Snapshots:          a.store,
		Archive:            a.store,
		Logger:             logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load detector: %w", err)
	}

	a.detector = detector

	logger.Info().
		Str(logFieldBackend, cfg.Storage.Backend).
		Int(logFieldCorpusSize, detector.CorpusSize()).
		Bool(logFieldEmbeddingTier, detector.EmbeddingTierAvailable()).
		Msg("Detector ready")

	return a, nil
}

// Settings resolves the detection settings from configuration.
func Settings(cfg *config.Config) pipeline.Settings {
	return pipeline.Settings{
		NumHashes:    cfg.LSH.NumHashFunctions,
		NumBands:     cfg.LSH.NumBands,
		LSHThreshold: cfg.LSH.SimilarityThreshold,
		Policy: scoring.Policy{
			MaxRatio:        cfg.Scoring.MaxRatio,
			ConsecutiveBase: cfg.Scoring.ConsecutiveBase,
		},
		EmbeddingEnabled:   cfg.Embedding.Enabled,
		SentenceThreshold:  cfg.Embedding.SentenceThreshold,
		DocumentThreshold:  cfg.Embedding.DocumentThreshold,
		EarlyExitThreshold: cfg.Embedding.EarlyExitThreshold,
		DocumentCheck:      cfg.Embedding.DocumentCheck,
		VerifyAll:          cfg.Embedding.VerifyAll,
		EmbeddingTimeout:   cfg.Embedding.Timeout,
		BatchSize:          cfg.Embedding.BatchSize,
		MaxConcurrent:      cfg.Embedding.MaxConcurrent,
		CitationPattern:    cfg.CitationRegexp(),
	}
}

// Detector returns the loaded detector.
func (a *App) Detector() *pipeline.Detector {
	return a.detector
}

// Store returns the corpus store.
func (a *App) Store() ports.Store {
	return a.store
}

// Close releases locks and the store in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}

	a.closers = nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.BackendPostgres:
		return a.openPostgres(ctx)
	case config.BackendBadger:
		store, err := badgerstore.Open(a.cfg.Storage.BadgerPath, a.logger)
		if err != nil {
			return fmt.Errorf("open badger store: %w", err)
		}

		a.setStore(store)
	case config.BackendSQLite:
		store, err := sqlitestore.Open(ctx, a.cfg.Storage.SQLitePath, a.logger)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}

		a.setStore(store)
	case config.BackendMemory:
		a.setStore(memory.New())
	default:
		return fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}

	return nil
}

func (a *App) openPostgres(ctx context.Context) error {
	opts := db.PoolOptions{
		MaxConns:          a.cfg.Database.MaxConnections,
		MinConns:          a.cfg.Database.MinConnections,
		MaxConnIdleTime:   a.cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:   a.cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: a.cfg.Database.HealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, a.cfg.Database.PostgresDSN, opts, a.logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	a.setStore(database)

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	if !a.cfg.Database.WriterLock {
		return nil
	}

	release, err := database.TryAcquireAdvisoryLock(ctx, db.WriterLockID)
	if err != nil {
		return fmt.Errorf("acquire writer lock: %w", err)
	}

	a.closers = append(a.closers, release)

	return nil
}

func (a *App) setStore(store ports.Store) {
	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close store")
		}
	})
}

func (a *App) newEmbeddingService() *embeddings.Service {
	logger := a.logger.With().Str(logFieldComponent, "embeddings").Logger()
	ec := a.cfg.Embedding

	client := embeddings.NewClient(embeddings.Config{
		OpenAIAPIKey:     ec.OpenAIAPIKey,
		OpenAIBaseURL:    ec.OpenAIBaseURL,
		OpenAIModel:      ec.OpenAIModel,
		OpenAIDimensions: ec.Dimensions,
		OpenAIRateLimit:  ec.OpenAIRateLimit,
		CohereAPIKey:     ec.CohereAPIKey,
		CohereModel:      ec.CohereModel,
		CohereRateLimit:  ec.CohereRateLimit,
		OllamaBaseURL:    ec.OllamaBaseURL,
		OllamaModel:      ec.OllamaModel,
		ProviderOrder:    ec.ProviderOrder,
		CircuitBreakerConfig: embeddings.CircuitBreakerConfig{
			Threshold:  ec.CircuitThreshold,
			ResetAfter: ec.CircuitResetAfter,
		},
		TargetDimensions: ec.Dimensions,
		Timeout:          ec.Timeout,
	}, &logger)

	return embeddings.NewService(client, embeddings.ServiceConfig{
		CacheSize: ec.CacheSize,
		MaxTokens: ec.MaxTokens,
	}, &logger)
}

// probeEmbedding resolves the capability flag once. A failed probe disables
// the tier for the lifetime of the process.
func (a *App) probeEmbedding(ctx context.Context, service *embeddings.Service) bool {
	pingCtx, cancel := context.WithTimeout(ctx, embeddingPingTimeout)
	defer cancel()

	if err := service.Ping(pingCtx); err != nil {
		a.logger.Warn().Err(err).Msg("embedding tier unavailable, falling back to signatures only")
		return false
	}

	return true
}

// StartHealthServer serves the document API next to the health and metrics endpoints.
func (a *App) StartHealthServer(ctx context.Context) error {
	handler := api.NewHandler(a.detector, a.logger)
	srv := observability.NewServerWithHandler(a.store, a.cfg.App.HTTPPort, handler, a.logger)

	a.RefreshArchiveGauge(ctx)

	go a.runArchiveGauge(ctx)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunWatcher processes documents dropped into the inbox directory until ctx is canceled.
func (a *App) RunWatcher(ctx context.Context) error {
	a.logger.Info().Str("dir", a.cfg.Inbox.Dir).Msg("Starting inbox watcher")

	w := inbox.New(a.cfg.Inbox.Dir, a.cfg.Inbox.PollInterval, a.detector, a.logger)
	w.SetMaxBackoff(a.cfg.Inbox.MaxBackoff)
	w.AddPeriodicTask(worker.PeriodicTask{
		Name:     "archive_gauge",
		Interval: archiveGaugeInterval,
		Run:      a.RefreshArchiveGauge,
	})

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("inbox watcher: %w", err)
	}

	return nil
}

// RefreshArchiveGauge publishes the archived document count.
func (a *App) RefreshArchiveGauge(ctx context.Context) {
	countCtx, cancel := context.WithTimeout(ctx, archiveGaugeTimeout)
	defer cancel()

	n, err := a.store.CountDocuments(countCtx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to count archived documents")
		return
	}

	observability.ArchivedDocuments.Set(float64(n))
}

func (a *App) runArchiveGauge(ctx context.Context) {
	defer worker.RecoverPanic(a.logger, "archive_gauge")

	ticker := time.NewTicker(archiveGaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.RefreshArchiveGauge(ctx)
		}
	}
}
