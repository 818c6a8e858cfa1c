// Package rag ties retrieval and generation together: uploads are split and
// indexed per session, questions are answered from the closest chunks, and
// study artifacts are generated from retrieved context.
package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/calder-ai/studyhall/internal/domain"
	"github.com/calder-ai/studyhall/internal/generation"
	"github.com/calder-ai/studyhall/internal/segment"
	"github.com/calder-ai/studyhall/internal/storage"
)

// Retrieval widths per operation. Artifact generation pulls wider context
// than question answering because it summarizes rather than answers.
const (
	queryTopK      = 5
	analyzeTopK    = 10
	conceptsTopK   = 20
	quizTopK       = 10
	flashcardsTopK = 15
)

// contextSeparator joins retrieved chunks into one prompt context.
const contextSeparator = "\n\n---\n\n"

// snippetLength caps the source preview returned with answers.
const snippetLength = 200

// Generator produces model output for the service. Implemented by the
// generation gateway.
type Generator interface {
	GenerateText(ctx context.Context, question, contextText string) (string, error)
	GenerateStructured(ctx context.Context, instruction, contextText string) (generation.StructuredResult, error)
}

// Service is the session-scoped study assistant.
type Service struct {
	index     storage.Index
	generator Generator
	splitter  *segment.Splitter
	logger    *slog.Logger
}

// New wires a Service. A nil logger falls back to slog's default.
func New(index storage.Index, generator Generator, splitter *segment.Splitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		index:     index,
		generator: generator,
		splitter:  splitter,
		logger:    logger,
	}
}

// Upload splits extracted text and indexes it under the session. Returns the
// number of chunks indexed; a file with no extractable text indexes zero
// chunks and is not an error.
func (s *Service) Upload(ctx context.Context, session, filename, text string) (int, error) {
	chunks := s.splitter.Split(text)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	if err := s.index.Add(ctx, session, filename, texts); err != nil {
		return 0, err
	}

	s.logger.Info("indexed upload",
		"session", session, "filename", filename, "chunks", len(chunks))
	return len(chunks), nil
}

// Query answers a question from the session's materials. With nothing
// indexed the question still goes to the model, just ungrounded and without
// sources.
func (s *Service) Query(ctx context.Context, session, prompt string) (*Answer, error) {
	results, err := s.index.Search(ctx, session, prompt, queryTopK)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retrieved context",
		"session", session, "chunks", len(results))

	answer, err := s.generator.GenerateText(ctx, prompt, joinContext(results))
	if err != nil {
		return nil, err
	}

	return &Answer{Answer: answer, Sources: sources(results)}, nil
}

// Materials lists the uploaded files for a session.
func (s *Service) Materials(ctx context.Context, session string) ([]Material, error) {
	files, err := s.index.ListFiles(ctx, session)
	if err != nil {
		return nil, err
	}

	materials := make([]Material, 0, len(files))
	for _, filename := range files {
		materials = append(materials, Material{Filename: filename})
	}
	return materials, nil
}

// DeleteMaterial removes one uploaded file from the session's index.
func (s *Service) DeleteMaterial(ctx context.Context, session, filename string) error {
	return s.index.DeleteFile(ctx, session, filename)
}

// ClearMaterials removes everything indexed for the session.
func (s *Service) ClearMaterials(ctx context.Context, session string) error {
	return s.index.Clear(ctx, session)
}

// requireMaterials returns the session's files, or ErrEmptyIndex when
// nothing has been uploaded yet.
func (s *Service) requireMaterials(ctx context.Context, session string) ([]string, error) {
	files, err := s.index.ListFiles(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	return files, nil
}

// retrieve runs a canned retrieval query and flattens the hits into prompt
// context.
func (s *Service) retrieve(ctx context.Context, session, query string, topK int) (string, error) {
	results, err := s.index.Search(ctx, session, query, topK)
	if err != nil {
		return "", err
	}
	return joinContext(results), nil
}

func joinContext(results []*storage.ScoredChunk) string {
	if len(results) == 0 {
		return ""
	}
	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Chunk.Text
	}
	return strings.Join(texts, contextSeparator)
}

// sources deduplicates filenames in rank order, keeping a short snippet of
// the best chunk per file.
func sources(results []*storage.ScoredChunk) []Source {
	seen := make(map[string]struct{})
	out := []Source{}
	for _, result := range results {
		if _, ok := seen[result.Chunk.Filename]; ok {
			continue
		}
		seen[result.Chunk.Filename] = struct{}{}
		out = append(out, Source{
			Filename: result.Chunk.Filename,
			Snippet:  snippet(result.Chunk.Text),
		})
	}
	return out
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
