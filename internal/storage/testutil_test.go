package storage

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/google/uuid"
)

const testDim = 8

// hashEmbedder produces deterministic unit vectors from text content, so
// identical texts are identical vectors and round trips need no API key.
type hashEmbedder struct {
	dim int
}

func (e hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e hashEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, e.dim)
	var norm float64
	for i := range v {
		v[i] = float32(sum[i%len(sum)]) - 127.5
		norm += float64(v[i]) * float64(v[i])
	}
	scale := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= scale
	}
	return v
}

func testSession() string {
	return "it-" + uuid.New().String()
}
