package triage

import "context"

// Provider is the interface for any inference backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single non-streamed completion request.
type GenerateRequest struct {
	Model  string
	Prompt string
}

// GenerateResponse carries the generated text. Errors are never returned as
// text: a failed call yields a nil response and an error wrapping ErrTimeout,
// ErrTransport or ErrMalformedResponse.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
