// Package llm provides the Gemini text-generation client used for catalog
// analysis and triple extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse indicates the model returned no usable text output.
var ErrEmptyResponse = errors.New("no output received from model")

// Generator abstracts a single-shot text generation call so components can be
// tested with substitutable doubles.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions holds sampling parameters for one generation call.
type GenerateOptions struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
	JSONResponse    bool
}

// Config holds Gemini client configuration.
type Config struct {
	APIKey string
	Model  string
}

// GeminiClient wraps the Google generative AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. The caller owns Close.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Close releases the underlying client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate sends a prompt with the given sampling parameters and returns the
// normalized text of the response. Exactly one candidate is requested.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := c.client.GenerativeModel(c.model)

	temp := opts.Temperature
	topP := opts.TopP
	candidateCount := int32(1)

	cfg := genai.GenerationConfig{
		Temperature:    &temp,
		TopP:           &topP,
		CandidateCount: &candidateCount,
	}
	if opts.MaxOutputTokens > 0 {
		maxTokens := opts.MaxOutputTokens
		cfg.MaxOutputTokens = &maxTokens
	}
	if opts.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	model.GenerationConfig = cfg

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate request failed: %w", err)
	}

	return ResponseText(resp)
}

// ResponseText extracts the textual payload from a generation response. The
// provider's response contract is polymorphic, so extraction is funneled
// through this one function: take the first candidate, concatenate its text
// parts in order, and ignore any non-text parts. An empty outcome at any step
// yields ErrEmptyResponse.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var out strings.Builder
	for _, part := range content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}

	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}

// StripCodeFence removes a wrapping Markdown code fence from model output.
// Models sometimes wrap JSON in ```json ... ``` even when asked not to.
func StripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```")
	if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.TrimPrefix(cleaned, "json")
	return strings.TrimSpace(cleaned)
}

var _ Generator = (*GeminiClient)(nil)
