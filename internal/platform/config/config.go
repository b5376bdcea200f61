package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Detection presets.
const (
	PresetHighPrecision = "high_precision"
	PresetBalanced      = "balanced"
	PresetHighRecall    = "high_recall"
	PresetLSHOnly       = "lsh_only"
)

type Config struct {
	App       AppConfig
	LSH       LSHConfig
	Embedding EmbeddingConfig
	Scoring   ScoringConfig
	Citation  CitationConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Inbox     InboxConfig

	Preset string `env:"DETECTION_PRESET"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := applyPreset(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type preset struct {
	lshThreshold      float64
	sentenceThreshold float32
	documentThreshold float32
	disableEmbedding  bool
}

var presets = map[string]preset{
	PresetHighPrecision: {lshThreshold: 0.5, sentenceThreshold: 0.92, documentThreshold: 0.87},
	PresetBalanced:      {lshThreshold: 0.4, sentenceThreshold: 0.9, documentThreshold: 0.85},
	PresetHighRecall:    {lshThreshold: 0.3, sentenceThreshold: 0.85, documentThreshold: 0.8},
	PresetLSHOnly:       {lshThreshold: 0.5, disableEmbedding: true},
}

// Presets returns the known preset names.
func Presets() []string {
	return []string{PresetHighPrecision, PresetBalanced, PresetHighRecall, PresetLSHOnly}
}

// applyPreset fills thresholds from DETECTION_PRESET. Variables set
// explicitly in the environment win over the preset.
func applyPreset(cfg *Config) error {
	name := strings.ToLower(strings.TrimSpace(cfg.Preset))
	if name == "" {
		return nil
	}

	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("%w: unknown detection preset %q", apperrors.ErrInvalidConfig, cfg.Preset)
	}

	cfg.Preset = name

	if !hasEnv("LSH_SIMILARITY_THRESHOLD") {
		cfg.LSH.SimilarityThreshold = p.lshThreshold
	}

	if p.disableEmbedding {
		if !hasEnv("EMBEDDING_ENABLED") {
			cfg.Embedding.Enabled = false
		}

		return nil
	}

	if !hasEnv("EMBEDDING_SENTENCE_THRESHOLD") {
		cfg.Embedding.SentenceThreshold = p.sentenceThreshold
	}

	if !hasEnv("EMBEDDING_DOCUMENT_THRESHOLD") {
		cfg.Embedding.DocumentThreshold = p.documentThreshold
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.LSH.NumHashFunctions <= 0 || c.LSH.NumBands <= 0 {
		errs = append(errs, fmt.Errorf("LSH_NUM_HASH_FUNCTIONS (%d) and LSH_NUM_BANDS (%d) must be positive",
			c.LSH.NumHashFunctions, c.LSH.NumBands))
	} else if c.LSH.NumHashFunctions%c.LSH.NumBands != 0 {
		errs = append(errs, fmt.Errorf("LSH_NUM_HASH_FUNCTIONS (%d) must be divisible by LSH_NUM_BANDS (%d)",
			c.LSH.NumHashFunctions, c.LSH.NumBands))
	}

	errs = checkUnit(errs, "LSH_SIMILARITY_THRESHOLD", c.LSH.SimilarityThreshold)
	errs = checkUnit(errs, "EMBEDDING_SENTENCE_THRESHOLD", float64(c.Embedding.SentenceThreshold))
	errs = checkUnit(errs, "EMBEDDING_DOCUMENT_THRESHOLD", float64(c.Embedding.DocumentThreshold))
	errs = checkUnit(errs, "EMBEDDING_EARLY_EXIT_THRESHOLD", float64(c.Embedding.EarlyExitThreshold))

	if c.Scoring.MaxRatio < 0 {
		errs = append(errs, fmt.Errorf("SCORING_MAX_RATIO must be non-negative, got %v", c.Scoring.MaxRatio))
	}

	if c.Scoring.ConsecutiveBase < 1 {
		errs = append(errs, fmt.Errorf("SCORING_CONSECUTIVE_BASE must be at least 1, got %v", c.Scoring.ConsecutiveBase))
	}

	errs = checkPositive(errs, "EMBEDDING_BATCH_SIZE", c.Embedding.BatchSize)
	errs = checkPositive(errs, "EMBEDDING_MAX_CONCURRENT", c.Embedding.MaxConcurrent)
	errs = checkPositive(errs, "EMBEDDING_MAX_TOKENS", c.Embedding.MaxTokens)
	errs = checkPositive(errs, "EMBEDDING_DIMENSIONS", c.Embedding.Dimensions)

	if c.Embedding.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_TIMEOUT must be positive, got %s", c.Embedding.Timeout))
	}

	if c.Citation.Enabled {
		if _, err := regexp.Compile(c.Citation.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("CITATION_PATTERN: %w", err))
		}
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Database.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	if c.Inbox.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("INBOX_POLL_INTERVAL must be positive, got %s", c.Inbox.PollInterval))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, errors.Join(errs...))
}

// CitationRegexp returns the compiled exemption rule, or nil when disabled.
func (c *Config) CitationRegexp() *regexp.Regexp {
	if !c.Citation.Enabled {
		return nil
	}

	return regexp.MustCompile(c.Citation.Pattern)
}

func checkUnit(errs []error, key string, v float64) []error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return append(errs, fmt.Errorf("%s must be within [0, 1], got %v", key, v))
	}

	return errs
}

func checkPositive(errs []error, key string, v int) []error {
	if v <= 0 {
		return append(errs, fmt.Errorf("%s must be positive, got %d", key, v))
	}

	return errs
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}
