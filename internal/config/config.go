package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector index backends.
const (
	VectorBackendQdrant = "qdrant"
	VectorBackendChroma = "chroma"
	VectorBackendMemory = "memory"
)

// Model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Config holds all configuration for the application.
type Config struct {
	ProcessedDir string
	DBPath       string

	// Chunking and retrieval limits.
	ChunkMaxSize   int
	ContextBudget  int
	MaxSources     int
	RetrievalK     int
	EmbedBatchSize int
	EmbedWorkers   int
	EmbedInputCap  int
	EmbedRPS       float64
	RetryAttempts  int
	LLMTimeout     time.Duration
	HybridSearch   bool
	Rerank         bool

	EmbeddingProvider  string
	GenerationProvider string

	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	GeminiAPIKey     string
	GeminiEmbedModel string
	GeminiGenModel   string

	VectorBackend    string
	VectorSize       int
	QdrantURL        string
	QdrantCollection string
	ChromaURL        string

	CacheBackend    string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	APIPort   string
	LogLevel  string
	LogFormat string
}

// PipelineSettings is the subset of Config consumed by the corpus build.
type PipelineSettings struct {
	ChunkMaxSize   int
	EmbedBatchSize int
	// EmbedWorkers bounds the embedding batches in flight at once.
	EmbedWorkers  int
	EmbedInputCap int
	RetryAttempts int
}

// RetrievalSettings is the subset of Config consumed at query time.
type RetrievalSettings struct {
	K             int
	MaxSources    int
	ContextBudget int
	RetryAttempts int
	Hybrid        bool
	Rerank        bool
}

// Pipeline projects the corpus build settings.
func (c *Config) Pipeline() PipelineSettings {
	return PipelineSettings{
		ChunkMaxSize:   c.ChunkMaxSize,
		EmbedBatchSize: c.EmbedBatchSize,
		EmbedWorkers:   c.EmbedWorkers,
		EmbedInputCap:  c.EmbedInputCap,
		RetryAttempts:  c.RetryAttempts,
	}
}

// Retrieval projects the query-time settings.
func (c *Config) Retrieval() RetrievalSettings {
	return RetrievalSettings{
		K:             c.RetrievalK,
		MaxSources:    c.MaxSources,
		ContextBudget: c.ContextBudget,
		RetryAttempts: c.RetryAttempts,
		Hybrid:        c.HybridSearch,
		Rerank:        c.Rerank,
	}
}

// Load reads configuration from environment variables and returns a Config struct.
// A .env file in the current directory or a parent directory is loaded first;
// variables already present in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		ProcessedDir:       getEnv("PROCESSED_DIR", ""),
		DBPath:             getEnv("DB_PATH", "./data/physiology-rag.db"),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
		GenerationProvider: strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiEmbedModel:   getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		GeminiGenModel:     getEnv("GEMINI_GEN_MODEL", "gemini-2.0-flash"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendQdrant)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "physiology_documents"),
		ChromaURL:          getEnv("CHROMA_URL", "http://localhost:8000"),
		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	ints := []struct {
		key  string
		def  int
		min  int
		dest *int
	}{
		{"CHUNK_MAX_SIZE", 1000, 1, &cfg.ChunkMaxSize},
		{"CONTEXT_BUDGET", 3000, 1, &cfg.ContextBudget},
		{"MAX_SOURCES", 3, 1, &cfg.MaxSources},
		{"RETRIEVAL_K", 5, 1, &cfg.RetrievalK},
		{"EMBED_BATCH_SIZE", 10, 1, &cfg.EmbedBatchSize},
		{"EMBED_CONCURRENCY", 4, 1, &cfg.EmbedWorkers},
		{"EMBED_INPUT_CAP", 1000, 1, &cfg.EmbedInputCap},
		{"RETRY_ATTEMPTS", 3, 1, &cfg.RetryAttempts},
		{"CACHE_MAX_ENTRIES", 1000, 1, &cfg.CacheMaxEntries},
		{"REDIS_DB", 0, 0, &cfg.RedisDB},
	}
	for _, f := range ints {
		v, err := getEnvInt(f.key, f.def)
		if err != nil {
			return nil, err
		}
		if v < f.min {
			return nil, fmt.Errorf("%s must be at least %d", f.key, f.min)
		}
		*f.dest = v
	}

	timeoutSecs, err := getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	if timeoutSecs <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT_SECONDS must be greater than 0")
	}
	cfg.LLMTimeout = time.Duration(timeoutSecs) * time.Second

	ttlSecs, err := getEnvInt("CACHE_TTL_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(ttlSecs) * time.Second

	rps, err := strconv.ParseFloat(getEnv("EMBED_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("EMBED_RPS must be a valid number: %w", err)
	}
	if rps <= 0 {
		return nil, fmt.Errorf("EMBED_RPS must be greater than 0")
	}
	cfg.EmbedRPS = rps

	if cfg.HybridSearch, err = getEnvBool("HYBRID_SEARCH", false); err != nil {
		return nil, err
	}
	if cfg.Rerank, err = getEnvBool("RERANK", true); err != nil {
		return nil, err
	}

	// VECTOR_SIZE must match the output size of the embedding model; changing
	// it requires a full rebuild of the collection.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.ProcessedDir == "" {
		return nil, fmt.Errorf("PROCESSED_DIR is required")
	}

	if err := cfg.validateChoices(); err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func (c *Config) validateChoices() error {
	switch c.VectorBackend {
	case VectorBackendQdrant, VectorBackendChroma, VectorBackendMemory:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be one of qdrant, chroma, memory (got %q)", c.VectorBackend)
	}
	for key, v := range map[string]string{
		"EMBEDDING_PROVIDER":  c.EmbeddingProvider,
		"GENERATION_PROVIDER": c.GenerationProvider,
	} {
		switch v {
		case ProviderOpenAI:
		case ProviderGemini:
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required when %s is gemini", key)
			}
		default:
			return fmt.Errorf("%s must be one of openai, gemini (got %q)", key, v)
		}
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of memory, redis, none (got %q)", c.CacheBackend)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
