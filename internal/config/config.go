package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Follow-up policies
const (
	FollowupPolicyRule  = "rule"
	FollowupPolicyModel = "model"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RAGConfig
	Store    StoreConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
	IngestTopic        string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider  string // "ollama"
	OllamaBaseURL      string
	OllamaModel        string // embedding model
	LLMProvider        string // "ollama"
	LLMModel           string // e.g. "medllama2", "llama3"
	EmbeddingCacheSize int
	GenerationTimeout  time.Duration
}

type RAGConfig struct {
	TopK               int
	ChatTopK           int
	SummaryBatchSize   int
	ChatHistoryEnabled bool
	FollowupPolicy     string // "rule" | "model"
	ChunkSize          int    // words
	ChunkOverlap       int    // words
	RetrievalTimeout   time.Duration
}

type StoreConfig struct {
	MemoryBackend        string // "redis" | "memory"
	IndexBackend         string // "chromem" | "pgvector"
	IndexPath            string
	PersistEmptySessions bool
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/medchat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			IngestTopic:        getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "medllama2"),
			EmbeddingCacheSize: getEnvAsInt("EMBEDDING_CACHE_SIZE", 512),
			GenerationTimeout:  getEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second),
		},
		Rag: RAGConfig{
			TopK:               getEnvAsInt("RAG_TOP_K", 3),
			ChatTopK:           getEnvAsInt("RAG_CHAT_TOP_K", 3),
			SummaryBatchSize:   getEnvAsInt("RAG_SUMMARY_BATCH_SIZE", 8),
			ChatHistoryEnabled: getEnvAsBool("RAG_CHAT_HISTORY_ENABLED", true),
			FollowupPolicy:     getEnv("RAG_FOLLOWUP_POLICY", FollowupPolicyRule),
			ChunkSize:          getEnvAsInt("RAG_CHUNK_SIZE", 500),
			ChunkOverlap:       getEnvAsInt("RAG_CHUNK_OVERLAP", 50),
			RetrievalTimeout:   getEnvAsDuration("RAG_RETRIEVAL_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			MemoryBackend:        getEnv("MEMORY_BACKEND", "redis"),
			IndexBackend:         getEnv("INDEX_BACKEND", "chromem"),
			IndexPath:            getEnv("INDEX_PATH", "vector_store"),
			PersistEmptySessions: getEnvAsBool("PERSIST_EMPTY_SESSIONS", false),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Rag.FollowupPolicy {
	case FollowupPolicyRule, FollowupPolicyModel:
	default:
		return fmt.Errorf("invalid RAG_FOLLOWUP_POLICY %q (want %q or %q)", c.Rag.FollowupPolicy, FollowupPolicyRule, FollowupPolicyModel)
	}
	switch c.Store.MemoryBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid MEMORY_BACKEND %q", c.Store.MemoryBackend)
	}
	switch c.Store.IndexBackend {
	case "chromem":
	case "pgvector":
		if c.Database.Connection == "" {
			return fmt.Errorf("INDEX_BACKEND=pgvector requires DB_CONNECTION_STRING")
		}
	default:
		return fmt.Errorf("invalid INDEX_BACKEND %q", c.Store.IndexBackend)
	}
	if c.Rag.TopK <= 0 || c.Rag.SummaryBatchSize <= 1 {
		return fmt.Errorf("RAG_TOP_K must be positive and RAG_SUMMARY_BATCH_SIZE greater than 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
