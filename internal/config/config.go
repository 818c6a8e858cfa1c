// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/calder-ai/studyhall/internal/domain"
	"github.com/calder-ai/studyhall/internal/embedding"
	"github.com/calder-ai/studyhall/internal/generation"
	"github.com/calder-ai/studyhall/internal/segment"
)

// Vector store backends.
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"
)

// Config carries every runtime setting.
type Config struct {
	OpenAIKey     string // OPENAI_API_KEY, required
	OpenAIBaseURL string // OPENAI_BASE_URL, empty selects the public endpoint

	EmbedModel string
	ChatModel  string
	EmbedDim   int

	StoreBackend string // qdrant or chromem
	QdrantHost   string
	QdrantPort   int
	DataDir      string // chromem persistence path; empty keeps it in memory

	Port         string
	ChunkSize    int
	ChunkOverlap int
}

// Load reads configuration from the environment. A .env file is honored
// when present and ignored when missing.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:    getEnv("EMBED_MODEL", embedding.DefaultModel),
		ChatModel:     getEnv("CHAT_MODEL", generation.DefaultModel),
		EmbedDim:      getEnvInt("EMBED_DIMENSION", embedding.DefaultDimension),
		StoreBackend:  getEnv("STORE_BACKEND", BackendQdrant),
		QdrantHost:    getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:    getEnvInt("QDRANT_PORT", 6334),
		DataDir:       os.Getenv("DATA_DIR"),
		Port:          getEnv("PORT", "8000"),
		ChunkSize:     getEnvInt("CHUNK_SIZE", segment.DefaultChunkSize),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", segment.DefaultOverlap),
	}

	if cfg.OpenAIKey == "" {
		return nil, domain.ConfigError("OPENAI_API_KEY", "not set")
	}
	switch cfg.StoreBackend {
	case BackendQdrant, BackendChromem:
	default:
		return nil, domain.ConfigError("STORE_BACKEND", fmt.Sprintf("unknown backend %q", cfg.StoreBackend))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
