// Package main provides the bulk ingest CLI for study materials.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-ai/studyhall/internal/config"
	"github.com/calder-ai/studyhall/internal/embedding"
	"github.com/calder-ai/studyhall/internal/generation"
	"github.com/calder-ai/studyhall/internal/indexer"
	"github.com/calder-ai/studyhall/internal/rag"
	"github.com/calder-ai/studyhall/internal/segment"
	"github.com/calder-ai/studyhall/internal/storage"
)

var session string

var rootCmd = &cobra.Command{
	Use:   "studyhall",
	Short: "StudyHall study material tools",
	Long:  "CLI tool for managing the StudyHall vector index",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Index a directory of study materials",
	Long: `Walks a directory and indexes every supported file for one session.

This command:
1. Loads configuration and connects to the vector store
2. Walks the directory for .pdf, .md, .markdown, and .txt files
3. Extracts plain text from each file
4. Chunks and embeds the text
5. Stores the chunks under the session's collection

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  STORE_BACKEND  Vector store backend, qdrant or chromem (default: qdrant)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  DATA_DIR       chromem persistence path (default: in-memory)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&session, "session", "default_user", "session to index the materials under")
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	start := time.Now()
	dir := args[0]

	fmt.Printf("Ingesting %s for session %q...\n", dir, session)
	fmt.Println()

	// 1. Load configuration (reads .env when present)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Initialize model gateways
	client, err := embedding.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	embedder := embedding.NewGateway(client, cfg.EmbedModel, cfg.EmbedDim, 0) // Use default batch size
	generator := generation.NewGateway(client.Client(), cfg.ChatModel)

	// 3. Connect to the vector store
	fmt.Printf("Connecting to %s store...\n", cfg.StoreBackend)
	index, err := newIndex(cfg, embedder)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}
	defer index.Close()

	if err := index.Health(ctx); err != nil {
		return fmt.Errorf("vector store health check failed: %w", err)
	}
	fmt.Println("Store healthy")

	// 4. Build the service
	splitter, err := segment.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := rag.New(index, generator, splitter, quiet)

	// 5. Walk and index
	fmt.Println()
	fmt.Println("Indexing materials...")
	pipeline := indexer.NewPipeline(service, session, quiet)

	result, err := pipeline.IndexDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	// 6. Print results
	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Files: %d/%d\n", result.IndexedFiles, result.TotalFiles)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	// 7. Print failed files if any
	if len(result.FailedFiles) > 0 {
		fmt.Println()
		fmt.Println("Failed files:")
		for _, failed := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

// newIndex selects the vector store backend from configuration.
func newIndex(cfg *config.Config, embedder storage.Embedder) (storage.Index, error) {
	if cfg.StoreBackend == config.BackendChromem {
		return storage.NewChromemIndex(cfg.DataDir, embedder, cfg.EmbedDim)
	}
	return storage.NewQdrantIndex(cfg.QdrantHost, cfg.QdrantPort, embedder, cfg.EmbedDim)
}
