package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the provider answered without any
	// usable text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNotConfigured is returned by the placeholder client used when no
	// provider credentials are set.
	ErrNotConfigured = errors.New("llm provider not configured")
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// Unconfigured is a Client that always fails with ErrNotConfigured.
type Unconfigured struct{ Reason string }

func (u Unconfigured) Generate(ctx context.Context, messages []Message) (Response, error) {
	if u.Reason != "" {
		return Response{}, errors.Join(ErrNotConfigured, errors.New(u.Reason))
	}
	return Response{}, ErrNotConfigured
}
