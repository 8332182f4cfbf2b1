package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one call to a scoring oracle.
type Request struct {
	SystemInstruction string
	Prompt            string
	MaxOutputTokens   int32
	JSONOnly          bool
}

// Oracle abstracts LLM providers. Generate returns the raw response text.
type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f OracleFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// StatusError carries the HTTP status reported by a provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.Code, e.Message)
}

var (
	// ErrNotImplemented is returned by the placeholder oracle.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("llm response empty")
)

// PlaceholderOracle is used when no provider is configured.
type PlaceholderOracle struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderOracle) Generate(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}
