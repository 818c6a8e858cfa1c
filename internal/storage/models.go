// Package storage indexes study material chunks in a vector store, one
// collection per session.
package storage

import "context"

// DefaultDimension is the vector width used when none is configured. It
// matches the default embedding model.
const DefaultDimension = 1536

// Chunk is one indexed span of an uploaded file.
type Chunk struct {
	ID         string // Deterministic UUID derived from collection, filename and position
	Text       string // Chunk text content
	Filename   string // Uploaded file the chunk came from
	ChunkIndex int    // Position in the file (0, 1, 2...)
}

// ScoredChunk pairs a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64 // Cosine similarity, higher is closer
}

// Embedder turns text into vectors. Implemented by the embedding gateway.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index is a session-scoped vector index over uploaded study materials.
// Sessions that were never written to behave as empty: reads return nothing
// and deletes are no-ops.
type Index interface {
	// Add embeds texts and stores them as chunks of filename. Re-adding the
	// same file overwrites its chunks in place.
	Add(ctx context.Context, session, filename string, texts []string) error

	// Search returns the chunks most similar to query, best first.
	Search(ctx context.Context, session, query string, limit int) ([]*ScoredChunk, error)

	// ListFiles returns the distinct filenames indexed for the session,
	// sorted alphabetically.
	ListFiles(ctx context.Context, session string) ([]string, error)

	// DeleteFile removes every chunk of the named file.
	DeleteFile(ctx context.Context, session, filename string) error

	// Clear drops all indexed material for the session.
	Clear(ctx context.Context, session string) error

	// Count reports the number of chunks indexed for the session.
	Count(ctx context.Context, session string) (uint64, error)

	Health(ctx context.Context) error
	Close() error
}
