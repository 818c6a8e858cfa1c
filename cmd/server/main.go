// Package main provides the StudyHall API server entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calder-ai/studyhall/internal/api"
	"github.com/calder-ai/studyhall/internal/config"
	"github.com/calder-ai/studyhall/internal/embedding"
	"github.com/calder-ai/studyhall/internal/generation"
	"github.com/calder-ai/studyhall/internal/rag"
	"github.com/calder-ai/studyhall/internal/segment"
	"github.com/calder-ai/studyhall/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 1. Configuration (reads .env when present)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Model gateways
	client, err := embedding.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	if err != nil {
		return err
	}
	embedder := embedding.NewGateway(client, cfg.EmbedModel, cfg.EmbedDim, 0) // Use default batch size
	generator := generation.NewGateway(client.Client(), cfg.ChatModel)

	// 3. Vector store
	index, err := newIndex(cfg, embedder)
	if err != nil {
		return err
	}
	defer index.Close()

	// 4. Splitter and service
	splitter, err := segment.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}
	service := rag.New(index, generator, splitter, logger)

	// 5. HTTP server
	router := api.NewRouter(api.NewHandler(service, logger), index)
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls can run for a while
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", server.Addr, "backend", cfg.StoreBackend, "chat_model", cfg.ChatModel)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// newIndex selects the vector store backend from configuration.
func newIndex(cfg *config.Config, embedder storage.Embedder) (storage.Index, error) {
	if cfg.StoreBackend == config.BackendChromem {
		return storage.NewChromemIndex(cfg.DataDir, embedder, cfg.EmbedDim)
	}
	return storage.NewQdrantIndex(cfg.QdrantHost, cfg.QdrantPort, embedder, cfg.EmbedDim)
}
