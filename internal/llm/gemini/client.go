package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"careaudit-backend/internal/llm"
	"careaudit-backend/internal/shared/telemetry"
)

// Client implements llm.Oracle using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Options configures the Gemini client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("SCORING_API_KEY is required for Gemini")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("SCORING_MODEL is required for Gemini")
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: opts.Model}, nil
}

// Generate sends one GenerateContent call and returns the response text.
func (c *Client) Generate(ctx context.Context, in llm.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.1)),
		MaxOutputTokens: in.MaxOutputTokens,
	}
	if strings.TrimSpace(in.SystemInstruction) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(in.SystemInstruction, genai.RoleUser)
	}
	if in.JSONOnly {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(in.Prompt), cfg)
	if err != nil {
		return "", mapError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	fields := map[string]any{"provider": "gemini", "model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "gemini", Code: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
