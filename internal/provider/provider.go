// Package provider abstracts the chat completion backends used for test
// case generation.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the backend could not be reached at all:
// connection failures, timeouts, or a missing configuration.
var ErrUnavailable = errors.New("completion provider unavailable")

// CallError indicates the backend was reached but reported a failure. The
// backend's message is preserved for the audit trail.
type CallError struct {
	Provider string
	Message  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed: %s", e.Provider, e.Message)
}

// Request describes one completion call.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Completion is the backend's response with its reported token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// CompletionProvider executes chat completions against one backend.
type CompletionProvider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
