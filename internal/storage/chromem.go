package storage

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex stores session collections in an embedded chromem-go
// database, either in memory or persisted under a local directory. It needs
// no external server, which makes it the zero-infrastructure backend.
type ChromemIndex struct {
	db       *chromem.DB
	embedder Embedder
	dim      int
}

// NewChromemIndex opens the database at path, or an in-memory one when path
// is empty. dim <= 0 selects DefaultDimension.
func NewChromemIndex(path string, embedder Embedder, dim int) (*ChromemIndex, error) {
	if dim <= 0 {
		dim = DefaultDimension
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
		}
	}

	return &ChromemIndex{
		db:       db,
		embedder: embedder,
		dim:      dim,
	}, nil
}

// Add embeds texts and stores them as chunks of filename in the session's
// collection, creating the collection on first write.
func (s *ChromemIndex) Add(ctx context.Context, session, filename string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) != s.dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vector), s.dim)
		}
	}

	name := CollectionName(session)
	col, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}

	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		docs[i] = chromem.Document{
			ID:        pointID(name, filename, i),
			Content:   text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"filename":    filename,
				"chunk_index": strconv.Itoa(i),
			},
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search embeds the query and returns the closest chunks, best first.
func (s *ChromemIndex) Search(ctx context.Context, session, query string, limit int) ([]*ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	col := s.db.GetCollection(CollectionName(session), s.embeddingFunc())
	if col == nil {
		return nil, nil
	}

	// chromem rejects nResults above the document count.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dim)
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	chunks := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		index, _ := strconv.Atoi(result.Metadata["chunk_index"])
		chunks = append(chunks, &ScoredChunk{
			Chunk: &Chunk{
				ID:         result.ID,
				Text:       result.Content,
				Filename:   result.Metadata["filename"],
				ChunkIndex: index,
			},
			Score: float64(result.Similarity),
		})
	}

	return chunks, nil
}

// ListFiles returns the distinct filenames in the session's collection,
// sorted alphabetically.
func (s *ChromemIndex) ListFiles(ctx context.Context, session string) ([]string, error) {
	col := s.db.GetCollection(CollectionName(session), s.embeddingFunc())
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem has no scan API; a full-width query against a fixed probe
	// vector visits every document.
	probe := make([]float32, s.dim)
	probe[0] = 1
	results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}

	seen := make(map[string]struct{})
	for _, result := range results {
		if filename := result.Metadata["filename"]; filename != "" {
			seen[filename] = struct{}{}
		}
	}

	files := make([]string, 0, len(seen))
	for filename := range seen {
		files = append(files, filename)
	}
	sort.Strings(files)
	return files, nil
}

// DeleteFile removes every chunk of the named file from the session's
// collection.
func (s *ChromemIndex) DeleteFile(ctx context.Context, session, filename string) error {
	col := s.db.GetCollection(CollectionName(session), s.embeddingFunc())
	if col == nil {
		return nil
	}

	if err := col.Delete(ctx, map[string]string{"filename": filename}, nil); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", filename, err)
	}
	return nil
}

// Clear drops the session's collection entirely. The next Add recreates it.
func (s *ChromemIndex) Clear(ctx context.Context, session string) error {
	if err := s.db.DeleteCollection(CollectionName(session)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Count reports the number of chunks in the session's collection.
func (s *ChromemIndex) Count(ctx context.Context, session string) (uint64, error) {
	col := s.db.GetCollection(CollectionName(session), s.embeddingFunc())
	if col == nil {
		return 0, nil
	}
	return uint64(col.Count()), nil
}

// Health always succeeds; the database is in-process.
func (s *ChromemIndex) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemIndex) Close() error {
	return nil
}

// embeddingFunc adapts the embedder for chromem, which wants a single-text
// function. Our writes carry precomputed vectors, so this only runs if a
// query ever goes through chromem's own embedding path.
func (s *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}
