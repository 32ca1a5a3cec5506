package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"PROCESSED_DIR", "DB_PATH", "VECTOR_SIZE",
	"CHUNK_MAX_SIZE", "CONTEXT_BUDGET", "MAX_SOURCES", "RETRIEVAL_K",
	"EMBED_BATCH_SIZE", "EMBED_CONCURRENCY", "EMBED_INPUT_CAP", "EMBED_RPS", "RETRY_ATTEMPTS",
	"LLM_TIMEOUT_SECONDS", "HYBRID_SEARCH", "RERANK",
	"EMBEDDING_PROVIDER", "GENERATION_PROVIDER", "GEMINI_API_KEY",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"VECTOR_BACKEND", "QDRANT_URL", "QDRANT_COLLECTION", "CHROMA_URL",
	"CACHE_BACKEND", "CACHE_TTL_SECONDS", "CACHE_MAX_ENTRIES",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every recognized variable for the duration of the test and
// moves into a directory without a .env file.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
	originalWd, _ := os.Getwd()
	_ = os.Chdir(t.TempDir())
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
}

func setRequired(t *testing.T) {
	t.Setenv("PROCESSED_DIR", t.TempDir())
	t.Setenv("VECTOR_SIZE", "768")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "data", "rag.db"))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "valid config with required fields",
			setupEnv: setRequired,
			checkConfig: func(cfg *Config) bool {
				return cfg.ProcessedDir != "" && cfg.VectorSize == 768
			},
		},
		{
			name: "missing PROCESSED_DIR",
			setupEnv: func(t *testing.T) {
				t.Setenv("VECTOR_SIZE", "768")
			},
			wantErr: true,
		},
		{
			name: "missing VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				t.Setenv("PROCESSED_DIR", t.TempDir())
			},
			wantErr: true,
		},
		{
			name: "invalid VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("VECTOR_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name:     "default limits",
			setupEnv: setRequired,
			checkConfig: func(cfg *Config) bool {
				return cfg.ChunkMaxSize == 1000 &&
					cfg.ContextBudget == 3000 &&
					cfg.MaxSources == 3 &&
					cfg.RetrievalK == 5 &&
					cfg.EmbedBatchSize == 10 &&
					cfg.EmbedWorkers == 4 &&
					cfg.EmbedInputCap == 1000 &&
					cfg.RetryAttempts == 3 &&
					cfg.LLMTimeout == 60*time.Second &&
					cfg.EmbedRPS == 5 &&
					!cfg.HybridSearch &&
					cfg.Rerank
			},
		},
		{
			name:     "default backends",
			setupEnv: setRequired,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorBackend == VectorBackendQdrant &&
					cfg.EmbeddingProvider == ProviderOpenAI &&
					cfg.GenerationProvider == ProviderOpenAI &&
					cfg.CacheBackend == CacheBackendMemory &&
					cfg.QdrantCollection == "physiology_documents" &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == "info"
			},
		},
		{
			name: "custom limits",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("CHUNK_MAX_SIZE", "500")
				t.Setenv("CONTEXT_BUDGET", "2000")
				t.Setenv("MAX_SOURCES", "5")
				t.Setenv("HYBRID_SEARCH", "true")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.ChunkMaxSize == 500 &&
					cfg.ContextBudget == 2000 &&
					cfg.MaxSources == 5 &&
					cfg.HybridSearch
			},
		},
		{
			name: "non-numeric chunk size",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("CHUNK_MAX_SIZE", "big")
			},
			wantErr: true,
		},
		{
			name: "zero max sources",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("MAX_SOURCES", "0")
			},
			wantErr: true,
		},
		{
			name: "unknown vector backend",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("VECTOR_BACKEND", "faiss")
			},
			wantErr: true,
		},
		{
			name: "gemini without api key",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("GENERATION_PROVIDER", "gemini")
			},
			wantErr: true,
		},
		{
			name: "gemini with api key",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("EMBEDDING_PROVIDER", "Gemini")
				t.Setenv("GEMINI_API_KEY", "key")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingProvider == ProviderGemini
			},
		},
		{
			name: "invalid boolean",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				t.Setenv("RERANK", "maybe")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "test", "db.db")
	t.Setenv("PROCESSED_DIR", t.TempDir())
	t.Setenv("VECTOR_SIZE", "768")
	t.Setenv("DB_PATH", dbPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}
	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestProjections(t *testing.T) {
	cfg := &Config{
		ChunkMaxSize:   800,
		EmbedBatchSize: 4,
		EmbedWorkers:   2,
		EmbedInputCap:  900,
		RetryAttempts:  2,
		RetrievalK:     7,
		MaxSources:     3,
		ContextBudget:  2500,
		HybridSearch:   true,
	}

	p := cfg.Pipeline()
	if p.ChunkMaxSize != 800 || p.EmbedBatchSize != 4 || p.EmbedWorkers != 2 || p.EmbedInputCap != 900 || p.RetryAttempts != 2 {
		t.Errorf("Pipeline() = %+v", p)
	}
	r := cfg.Retrieval()
	if r.K != 7 || r.MaxSources != 3 || r.ContextBudget != 2500 || !r.Hybrid || r.Rerank {
		t.Errorf("Retrieval() = %+v", r)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{"env var set", "set-value", "default", "set-value"},
		{"empty env var uses default", "", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_VAR", tt.value)
			if got := getEnv("TEST_ENV_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}
