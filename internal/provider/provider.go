// Package provider isolates the orchestrator from AI content providers:
// their wire clients, failure modes and cost characteristics.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpress/openpress/internal/topic"
)

// Draft is the product of one successful generation call.
type Draft struct {
	Title    string
	Markdown string
	Model    string

	PromptTokens     int
	CompletionTokens int
}

// Provider is the uniform contract every AI backend implements. Selection
// happens by configuration, never by inspecting the concrete type.
type Provider interface {
	Name() string
	DraftArticle(ctx context.Context, model string, cand topic.Candidate) (*Draft, error)
}

// ErrProvidersExhausted means every configured provider failed for one
// candidate. The run cannot make progress and must stop.
var ErrProvidersExhausted = errors.New("all providers exhausted")

// GenerationError wraps a provider failure with its retry class.
// Transient failures (timeout, rate limit, 5xx) are eligible for retry and
// fallback; everything else surfaces immediately.
type GenerationError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
