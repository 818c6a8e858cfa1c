// Package indexer bulk-loads a directory of study materials into the index.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/calder-ai/studyhall/internal/markdown"
	"github.com/calder-ai/studyhall/internal/pdf"
)

// IndexResult contains statistics about an ingest run.
type IndexResult struct {
	TotalFiles   int
	IndexedFiles int
	TotalChunks  int
	FailedFiles  []FailedFile
	Duration     time.Duration
}

// FailedFile records a document that could not be indexed.
type FailedFile struct {
	Path   string
	Reason string
}

// Ingestor is the slice of the service the pipeline drives.
type Ingestor interface {
	Upload(ctx context.Context, session, filename, text string) (int, error)
}

// Pipeline walks a directory of study materials and indexes every supported
// file for one session.
type Pipeline struct {
	service Ingestor
	session string
	logger  *slog.Logger
}

// NewPipeline creates an ingest pipeline bound to a session.
func NewPipeline(service Ingestor, session string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		service: service,
		session: session,
		logger:  logger,
	}
}

// IndexDir ingests every .pdf, .md, .markdown, and .txt file under dir.
// Files that fail are recorded and skipped so one bad scan does not abort
// the run. Returns detailed statistics about the ingest operation.
func (p *Pipeline) IndexDir(ctx context.Context, dir string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	paths, err := listMaterials(dir)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	result.TotalFiles = len(paths)
	p.logger.Info("Found materials", "dir", dir, "count", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunks, err := p.processFile(ctx, path)
		if err != nil {
			p.logger.Warn("Failed to index file", "path", path, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				Path:   path,
				Reason: err.Error(),
			})
			continue
		}
		result.IndexedFiles++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingest complete",
		"indexed", result.IndexedFiles,
		"failed", len(result.FailedFiles),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

// processFile extracts text from one file and indexes it under the file's
// base name. Returns the number of chunks created.
func (p *Pipeline) processFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text = pdf.Text(data)
	case ".md", ".markdown":
		text = markdown.Text(data)
	case ".txt":
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("no extractable text")
	}

	chunks, err := p.service.Upload(ctx, p.session, filepath.Base(path), text)
	if err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}

	p.logger.Debug("Indexed file", "path", path, "chunks", chunks)
	return chunks, nil
}

// listMaterials collects supported files under dir, sorted for stable runs.
func listMaterials(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".md", ".markdown", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
