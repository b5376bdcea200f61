package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

// Test environment variable keys.
const (
	testEnvBackend   = "STORAGE_BACKEND"
	testEnvDSN       = "POSTGRES_DSN"
	testEnvPreset    = "DETECTION_PRESET"
	testEnvLSHThresh = "LSH_SIMILARITY_THRESHOLD"
	testEnvHashes    = "LSH_NUM_HASH_FUNCTIONS"
	testEnvBands     = "LSH_NUM_BANDS"
)

const testErrLoad = "Load() error = %v"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.App.Env != "local" {
		t.Errorf("App.Env = %q, want local", cfg.App.Env)
	}

	if cfg.LSH.NumHashFunctions != 20 || cfg.LSH.NumBands != 10 {
		t.Errorf("LSH = %d/%d, want 20/10", cfg.LSH.NumHashFunctions, cfg.LSH.NumBands)
	}

	if cfg.LSH.SimilarityThreshold != 0.4 {
		t.Errorf("LSH.SimilarityThreshold = %v, want 0.4", cfg.LSH.SimilarityThreshold)
	}

	if cfg.Scoring.MaxRatio != 0.3 || cfg.Scoring.ConsecutiveBase != 3 {
		t.Errorf("Scoring = %+v, want 0.3/3", cfg.Scoring)
	}

	if cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("Embedding.Timeout = %s, want 30s", cfg.Embedding.Timeout)
	}

	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, BackendBadger)
	}

	if cfg.CitationRegexp() != nil {
		t.Error("citation exemption must be disabled by default")
	}
}

func TestLoad_Presets(t *testing.T) {
	tests := []struct {
		preset           string
		wantLSH          float64
		wantSentence     float32
		wantDocument     float32
		wantEmbeddingsOn bool
	}{
		{PresetHighPrecision, 0.5, 0.92, 0.87, true},
		{PresetBalanced, 0.4, 0.9, 0.85, true},
		{PresetHighRecall, 0.3, 0.85, 0.8, true},
		{PresetLSHOnly, 0.5, 0.8, 0.85, false},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			t.Setenv(testEnvPreset, tt.preset)

			cfg, err := Load()
			if err != nil {
				t.Fatalf(testErrLoad, err)
			}

			if cfg.LSH.SimilarityThreshold != tt.wantLSH {
				t.Errorf("LSH threshold = %v, want %v", cfg.LSH.SimilarityThreshold, tt.wantLSH)
			}

			if cfg.Embedding.SentenceThreshold != tt.wantSentence {
				t.Errorf("sentence threshold = %v, want %v", cfg.Embedding.SentenceThreshold, tt.wantSentence)
			}

			if cfg.Embedding.DocumentThreshold != tt.wantDocument {
				t.Errorf("document threshold = %v, want %v", cfg.Embedding.DocumentThreshold, tt.wantDocument)
			}

			if cfg.Embedding.Enabled != tt.wantEmbeddingsOn {
				t.Errorf("embedding enabled = %v, want %v", cfg.Embedding.Enabled, tt.wantEmbeddingsOn)
			}
		})
	}
}

func TestLoad_ExplicitEnvBeatsPreset(t *testing.T) {
	t.Setenv(testEnvPreset, PresetHighRecall)
	t.Setenv(testEnvLSHThresh, "0.65")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.LSH.SimilarityThreshold != 0.65 {
		t.Errorf("LSH threshold = %v, want 0.65", cfg.LSH.SimilarityThreshold)
	}
}

func TestLoad_UnknownPreset(t *testing.T) {
	t.Setenv(testEnvPreset, "paranoid")

	_, err := Load()
	if !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_InvalidBanding(t *testing.T) {
	t.Setenv(testEnvHashes, "20")
	t.Setenv(testEnvBands, "3")

	_, err := Load()
	if !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	t.Setenv(testEnvBackend, BackendPostgres)
	t.Setenv(testEnvDSN, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres backend without DSN")
	}

	t.Setenv(testEnvDSN, "postgres://localhost/dupcheck")

	if _, err := Load(); err != nil {
		t.Fatalf(testErrLoad, err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	cfg.LSH.SimilarityThreshold = 1.5
	cfg.Scoring.ConsecutiveBase = 0.5
	cfg.Storage.Backend = "tape"
	cfg.Citation.Enabled = true
	cfg.Citation.Pattern = "(["

	err = cfg.Validate()
	if !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	for _, key := range []string{"LSH_SIMILARITY_THRESHOLD", "SCORING_CONSECUTIVE_BASE", "STORAGE_BACKEND", "CITATION_PATTERN"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestCitationRegexp(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	cfg.Citation.Enabled = true
	re := cfg.CitationRegexp()

	for _, s := range []string{"as shown before [3].", "as argued (Smith et al., 2019)."} {
		if !re.MatchString(s) {
			t.Errorf("default pattern does not match %q", s)
		}
	}

	if re.MatchString("no reference here (really).") {
		t.Error("default pattern matched a sentence without a citation")
	}
}
