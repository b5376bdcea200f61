package config

import "time"

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env      string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
}

// LSHConfig holds signature and banding settings.
type LSHConfig struct {
	NumHashFunctions    int     `env:"LSH_NUM_HASH_FUNCTIONS" envDefault:"20"`
	NumBands            int     `env:"LSH_NUM_BANDS" envDefault:"10"`
	SimilarityThreshold float64 `env:"LSH_SIMILARITY_THRESHOLD" envDefault:"0.4"`
}

// EmbeddingConfig holds the semantic tier and its providers.
type EmbeddingConfig struct {
	Enabled            bool          `env:"EMBEDDING_ENABLED" envDefault:"true"`
	SentenceThreshold  float32       `env:"EMBEDDING_SENTENCE_THRESHOLD" envDefault:"0.8"`
	DocumentThreshold  float32       `env:"EMBEDDING_DOCUMENT_THRESHOLD" envDefault:"0.85"`
	EarlyExitThreshold float32       `env:"EMBEDDING_EARLY_EXIT_THRESHOLD" envDefault:"0.98"`
	DocumentCheck      bool          `env:"EMBEDDING_DOCUMENT_CHECK" envDefault:"true"`
	VerifyAll          bool          `env:"EMBEDDING_VERIFY_ALL" envDefault:"false"`
	Timeout            time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"30s"`
	MaxTokens          int           `env:"EMBEDDING_MAX_TOKENS" envDefault:"512"`
	BatchSize          int           `env:"EMBEDDING_BATCH_SIZE" envDefault:"10"`
	MaxConcurrent      int           `env:"EMBEDDING_MAX_CONCURRENT" envDefault:"5"`
	CacheSize          int           `env:"EMBEDDING_CACHE_SIZE" envDefault:"10000"`
	Dimensions         int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	ProviderOrder      string        `env:"EMBEDDING_PROVIDER_ORDER" envDefault:"openai,cohere,ollama"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	OpenAIRateLimit int    `env:"OPENAI_EMBEDDING_RPS" envDefault:"5"`

	CohereAPIKey    string `env:"COHERE_API_KEY"`
	CohereModel     string `env:"COHERE_EMBEDDING_MODEL" envDefault:"embed-english-v3.0"`
	CohereRateLimit int    `env:"COHERE_EMBEDDING_RPS" envDefault:"5"`

	OllamaBaseURL string `env:"OLLAMA_BASE_URL"`
	OllamaModel   string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`

	CircuitThreshold  int           `env:"EMBEDDING_CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitResetAfter time.Duration `env:"EMBEDDING_CIRCUIT_RESET_AFTER" envDefault:"1m"`
}

// ScoringConfig holds the acceptance policy.
type ScoringConfig struct {
	MaxRatio        float64 `env:"SCORING_MAX_RATIO" envDefault:"0.3"`
	ConsecutiveBase float64 `env:"SCORING_CONSECUTIVE_BASE" envDefault:"3"`
}

// CitationConfig holds the optional citation exemption rule.
type CitationConfig struct {
	Enabled bool   `env:"CITATION_EXEMPTION_ENABLED" envDefault:"false"`
	Pattern string `env:"CITATION_PATTERN" envDefault:"\\[\\d+\\]|\\([A-Z][^()]*,\\s*\\d{4}\\)"`
}

// StorageConfig selects the corpus store.
type StorageConfig struct {
	Backend    string `env:"STORAGE_BACKEND" envDefault:"badger"`
	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/badger"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/corpus.db"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	// WriterLock takes an advisory lock so only one process writes the shared snapshot.
	WriterLock bool `env:"DB_WRITER_LOCK" envDefault:"true"`
}

// InboxConfig holds the directory watcher settings.
type InboxConfig struct {
	Dir          string        `env:"INBOX_DIR" envDefault:"./inbox"`
	PollInterval time.Duration `env:"INBOX_POLL_INTERVAL" envDefault:"10s"`
	MaxBackoff   time.Duration `env:"INBOX_MAX_BACKOFF" envDefault:"5m"`
}
