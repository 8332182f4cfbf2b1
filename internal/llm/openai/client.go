package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"careaudit-backend/internal/llm"
	"careaudit-backend/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client scores sections through OpenAI Chat Completions.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient builds a client for model authenticated with apiKey.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("SCORING_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("SCORING_API_KEY is required for OpenAI")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	http := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, model: model}, nil
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model               string          `json:"model"`
	Messages            []message       `json:"messages"`
	Temperature         *float32        `json:"temperature,omitempty"`
	MaxCompletionTokens int32           `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// Generate runs one completion and returns the trimmed message content.
func (c *Client) Generate(ctx context.Context, in llm.Request) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(c.buildRequest(in)).
		Post("/chat/completions")
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", fmt.Errorf("openai request: %w", err)
	}

	var out completionResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if decodeErr == nil && out.Error != nil {
			msg = fmt.Sprintf("%s (%s)", out.Error.Message, out.Error.Type)
		}
		return "", &llm.StatusError{Provider: "openai", Code: resp.StatusCode(), Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("openai response parse: %w", decodeErr)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai error: %s (%s)", out.Error.Message, out.Error.Type)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}

	choice := out.Choices[0]
	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"finish_reason":     choice.FinishReason,
	})
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

func (c *Client) buildRequest(in llm.Request) completionRequest {
	req := completionRequest{
		Model:               c.model,
		MaxCompletionTokens: in.MaxOutputTokens,
	}
	if strings.TrimSpace(in.SystemInstruction) != "" {
		req.Messages = append(req.Messages, message{Role: "system", Content: in.SystemInstruction})
	}
	req.Messages = append(req.Messages, message{Role: "user", Content: in.Prompt})
	if in.JSONOnly {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	// gpt-5 models reject any temperature other than the default.
	if !isGPT5(c.model) {
		zero := float32(0)
		req.Temperature = &zero
	}
	return req
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}
