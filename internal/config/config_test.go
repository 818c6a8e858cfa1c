package config

import (
	"errors"
	"testing"

	"github.com/calder-ai/studyhall/internal/domain"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

// TestLoad_Defaults verifies every optional setting has a sensible default.
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{
		"OPENAI_BASE_URL", "EMBED_MODEL", "CHAT_MODEL", "EMBED_DIMENSION",
		"STORE_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "DATA_DIR", "PORT",
		"CHUNK_SIZE", "CHUNK_OVERLAP",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("Unexpected embed model %q", cfg.EmbedModel)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("Unexpected chat model %q", cfg.ChatModel)
	}
	if cfg.EmbedDim != 1536 {
		t.Errorf("Unexpected embed dimension %d", cfg.EmbedDim)
	}
	if cfg.StoreBackend != BackendQdrant {
		t.Errorf("Unexpected backend %q", cfg.StoreBackend)
	}
	if cfg.QdrantHost != "localhost" || cfg.QdrantPort != 6334 {
		t.Errorf("Unexpected qdrant target %s:%d", cfg.QdrantHost, cfg.QdrantPort)
	}
	if cfg.Port != "8000" {
		t.Errorf("Unexpected port %q", cfg.Port)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("Unexpected chunking %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

// TestLoad_Overrides verifies environment variables take precedence.
func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("CHAT_MODEL", "gpt-4o")
	t.Setenv("EMBED_DIMENSION", "256")
	t.Setenv("STORE_BACKEND", "chromem")
	t.Setenv("DATA_DIR", "/var/lib/studyhall")
	t.Setenv("PORT", "9000")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OpenAIBaseURL != "http://localhost:11434/v1" {
		t.Errorf("Unexpected base URL %q", cfg.OpenAIBaseURL)
	}
	if cfg.EmbedModel != "text-embedding-3-large" || cfg.ChatModel != "gpt-4o" {
		t.Errorf("Unexpected models %q/%q", cfg.EmbedModel, cfg.ChatModel)
	}
	if cfg.EmbedDim != 256 {
		t.Errorf("Unexpected embed dimension %d", cfg.EmbedDim)
	}
	if cfg.StoreBackend != BackendChromem || cfg.DataDir != "/var/lib/studyhall" {
		t.Errorf("Unexpected store settings %q %q", cfg.StoreBackend, cfg.DataDir)
	}
	if cfg.Port != "9000" || cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("Unexpected overrides %q %d/%d", cfg.Port, cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

// TestLoad_MissingKey verifies the API key is required.
func TestLoad_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
}

// TestLoad_UnknownBackend verifies backend names are validated.
func TestLoad_UnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
}

// TestLoad_BadIntFallsBack verifies unparseable numbers select the default.
func TestLoad_BadIntFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("QDRANT_PORT", "not-a-port")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.QdrantPort != 6334 {
		t.Errorf("Expected default port, got %d", cfg.QdrantPort)
	}
}
