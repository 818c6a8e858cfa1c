package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/calder-ai/studyhall/internal/domain"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension of DefaultModel. Collections
	// are created with this width unless overridden.
	DefaultDimension = 1536

	// DefaultBatchSize keeps a single request comfortably inside
	// tokens-per-request limits. The API accepts up to 2048 inputs per call.
	DefaultBatchSize = 50
)

// embedFunc performs one embeddings API call. It exists so tests can inject
// failures without a live endpoint.
type embedFunc func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error)

// Gateway turns text into vectors. It batches requests and retries rate
// limit and server errors with exponential backoff; credential errors fail
// immediately.
type Gateway struct {
	embed      embedFunc
	model      string
	dimensions int
	batchSize  int
	newBackOff func() backoff.BackOff
}

// NewGateway creates a Gateway on top of client. Zero values select
// DefaultModel, the model's native dimension and DefaultBatchSize.
func NewGateway(client *Client, model string, dimensions, batchSize int) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Gateway{
		embed: func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
			if err := client.wait(ctx); err != nil {
				return nil, err
			}
			return client.client.Embeddings.New(ctx, params)
		},
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
		newBackOff: defaultBackOff,
	}
}

// Embed generates one vector per input text, in input order.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += g.batchSize {
		end := min(i+g.batchSize, len(texts))

		vectors, err := g.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedQuery embeds a single piece of text.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *Gateway) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(g.model),
	}
	if g.dimensions > 0 {
		params.Dimensions = openai.Int(int64(g.dimensions))
	}

	var vectors [][]float32
	operation := func() error {
		resp, err := g.embed(ctx, params)
		if err != nil {
			return classify(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(g.newBackOff(), ctx))
	if err != nil {
		if transient(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return vectors, nil
}

// classify decides whether an API failure is worth retrying. Rate limits and
// server errors are transient; everything else is permanent.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return backoff.Permanent(fmt.Errorf("%w: credentials rejected: %v", domain.ErrConfiguration, err))
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return err
		default:
			return backoff.Permanent(fmt.Errorf("embeddings: %w", err))
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	// Transport-level failure: the endpoint itself is unreachable.
	return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err))
}

func transient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// toFloat32 converts the API's float64 vectors to the float32 the vector
// stores index.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
