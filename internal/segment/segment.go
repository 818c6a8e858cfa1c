// Package segment turns extracted document text into overlapping fixed-size
// windows suitable for embedding.
package segment

import (
	"fmt"

	"github.com/calder-ai/studyhall/internal/domain"
)

const (
	// DefaultChunkSize is the window length in runes.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many runes consecutive windows share.
	DefaultOverlap = 200
)

// Chunk is one window of source text, the unit of embedding and retrieval.
type Chunk struct {
	Index int    // Position in document (0, 1, 2...)
	Text  string // Window content
}

// Splitter cuts text into overlapping windows of a fixed size.
// Splitting is deterministic: the same input always yields the same chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. A chunkSize of 0 selects DefaultChunkSize.
// The overlap must be non-negative and strictly smaller than the chunk size,
// otherwise the window start would never advance; violations return an error
// wrapping domain.ErrConfiguration.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrConfiguration, overlap, chunkSize)
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// Split cuts text into chunks. Windows advance by chunkSize-overlap runes and
// the last window ends exactly at the end of the text, so for input length L
// the chunk count is ceil(max(L-overlap, 0) / (chunkSize-overlap)). Empty
// input yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	// Slice on runes so multi-byte characters never straddle a boundary.
	runes := []rune(text)
	step := s.chunkSize - s.overlap

	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks
}
