package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MNEMO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists. A missing file is
// not an error; all config is flat env vars read via os.Getenv after loading.
func Load() {
	envFile := os.Getenv("MNEMO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// VectorStore selects the storage backend.
// Valid values: pgvector, chromem. Defaults to "pgvector".
func VectorStore() string {
	s := os.Getenv("VECTOR_STORE")
	if s == "" {
		return "pgvector"
	}
	return s
}

// CollectionName is the table (pgvector) or collection (chromem) memories
// live in. Defaults to "memories".
func CollectionName() string {
	name := os.Getenv("COLLECTION_NAME")
	if name == "" {
		return "memories"
	}
	return name
}

// EmbeddingDimensions must match the configured embedding model.
// Defaults to 1536.
func EmbeddingDimensions() int {
	dims, err := strconv.Atoi(os.Getenv("EMBEDDING_DIMENSIONS"))
	if err != nil || dims <= 0 {
		return 1536
	}
	return dims
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func CohereAPIKey() string {
	return os.Getenv("COHERE_API_KEY")
}

// LLMProvider returns the provider used for annotation.
// Valid values: openai, anthropic. Defaults to "openai".
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the provider used for embeddings.
// Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// RerankProvider returns the provider used for reranking.
// Defaults to "cohere".
func RerankProvider() string {
	p := os.Getenv("RERANK_PROVIDER")
	if p == "" {
		return "cohere"
	}
	return p
}

func apiKeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return AnthropicAPIKey()
	case "cohere":
		return CohereAPIKey()
	default:
		return OpenAIAPIKey()
	}
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	return apiKeyFor(LLMProvider())
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	return apiKeyFor(EmbeddingProvider())
}

// RerankAPIKey returns the API key for the configured rerank provider.
func RerankAPIKey() string {
	return apiKeyFor(RerankProvider())
}

func LLMModel() string {
	m := os.Getenv("LLM_MODEL")
	if m == "" {
		return "gpt-4o-mini"
	}
	return m
}

func EmbeddingModel() string {
	m := os.Getenv("EMBEDDING_MODEL")
	if m == "" {
		return "text-embedding-3-small"
	}
	return m
}

func RerankModel() string {
	m := os.Getenv("RERANK_MODEL")
	if m == "" {
		return "rerank-v3.5"
	}
	return m
}

// RetryMaxAttempts bounds provider call attempts. Defaults to 3.
func RetryMaxAttempts() int {
	n, err := strconv.Atoi(os.Getenv("RETRY_MAX_ATTEMPTS"))
	if err != nil || n <= 0 {
		return 3
	}
	return n
}

// RetryAttemptTimeout is the per-attempt deadline in seconds.
// Defaults to 30s.
func RetryAttemptTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("RETRY_ATTEMPT_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// RetryInitialBackoff is the first backoff delay in milliseconds.
// Defaults to 500ms.
func RetryInitialBackoff() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("RETRY_INITIAL_BACKOFF_MS"))
	if err != nil || ms <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// EmbedMaxParallels caps concurrent single-input embedding calls.
// Defaults to 1000.
func EmbedMaxParallels() int64 {
	n, err := strconv.ParseInt(os.Getenv("EMBED_MAX_PARALLELS"), 10, 64)
	if err != nil || n <= 0 {
		return 1000
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
