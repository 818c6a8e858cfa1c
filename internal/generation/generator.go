// Package generation produces answers and structured artifacts from the chat
// model, grounded in retrieved study material.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/calder-ai/studyhall/internal/domain"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// SystemInstruction frames every completion. LaTeX formatting keeps math
// renderable in the frontend.
const SystemInstruction = "You are a helpful academic assistant. ALWAYS use LaTeX for mathematical formulas ($ for inline, $$ for block). If the user asks for numericals, represent them in their original mathematical structure using LaTeX."

// completeFunc performs one chat completion call. It exists so tests can
// inject failures without a live endpoint.
type completeFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// StructuredResult carries the raw model output for a JSON-mode request.
// Fallback reports that the provider rejected JSON mode and the output came
// from a plain completion instead.
type StructuredResult struct {
	Raw      string
	Fallback bool
}

// Gateway wraps the chat completion API. Rate limit and server errors are
// retried with exponential backoff; credential errors fail immediately.
type Gateway struct {
	complete   completeFunc
	model      string
	newBackOff func() backoff.BackOff
}

// NewGateway creates a Gateway on top of client. An empty model selects
// DefaultModel.
func NewGateway(client *openai.Client, model string) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	return &Gateway{
		complete: func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			return client.Chat.Completions.New(ctx, params)
		},
		model:      model,
		newBackOff: defaultBackOff,
	}
}

// GenerateText answers a question grounded in contextText. An empty context
// sends the bare question.
func (g *Gateway) GenerateText(ctx context.Context, question, contextText string) (string, error) {
	return g.completeWithRetry(ctx, g.params(questionPrompt(question, contextText)))
}

// GenerateStructured runs an instruction in JSON mode and returns the raw
// output for the caller to parse. Providers that reject JSON mode get a
// second chance in plain text mode with an explicit JSON-only instruction.
func (g *Gateway) GenerateStructured(ctx context.Context, instruction, contextText string) (StructuredResult, error) {
	params := g.params(structuredPrompt(instruction, contextText))
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &openai.ResponseFormatJSONObjectParam{
			Type: "json_object",
		},
	}

	raw, err := g.completeWithRetry(ctx, params)
	if err == nil {
		return StructuredResult{Raw: raw}, nil
	}
	if !jsonModeRejected(err) {
		return StructuredResult{}, err
	}

	fallback := instruction + "\n\nReturn only valid JSON, nothing else."
	raw, err = g.completeWithRetry(ctx, g.params(structuredPrompt(fallback, contextText)))
	if err != nil {
		return StructuredResult{}, err
	}
	return StructuredResult{Raw: raw, Fallback: true}, nil
}

func (g *Gateway) params(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemInstruction),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	}
}

func (g *Gateway) completeWithRetry(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var content string
	operation := func() error {
		resp, err := g.complete(ctx, params)
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: response carried no choices", domain.ErrMalformedOutput))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(g.newBackOff(), ctx))
	if err != nil {
		if transient(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return "", err
	}
	return content, nil
}

func questionPrompt(question, contextText string) string {
	if contextText == "" {
		return question
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
}

func structuredPrompt(instruction, contextText string) string {
	if contextText == "" {
		return instruction
	}
	return fmt.Sprintf("Context:\n%s\n\nInstruction: %s", contextText, instruction)
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
			return backoff.Permanent(fmt.Errorf("chat: %w", err))
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

// jsonModeRejected reports whether the provider refused the request shape
// itself, as opposed to failing on credentials or availability.
func jsonModeRejected(err error) bool {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 401, 403, 429:
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}
