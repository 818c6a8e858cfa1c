package embedding

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/calder-ai/studyhall/internal/domain"
)

// requestsPerSecond throttles outbound embedding calls so bulk ingestion
// stays inside the provider's requests-per-minute budget.
const requestsPerSecond = 5

// Client wraps the OpenAI API client shared by the embedding and generation
// gateways.
type Client struct {
	client  *openai.Client
	limiter *rate.Limiter
}

// NewClient creates an OpenAI client for the given credentials. baseURL may
// be empty for the public endpoint, or point at any OpenAI-compatible server.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.ConfigError("OPENAI_API_KEY", "not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{
		client:  &client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// Client returns the underlying OpenAI client for use in other packages
// (e.g. answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}

func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}
