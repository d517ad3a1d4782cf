// Package llm abstracts the generative backends behind a single-prompt
// completion interface. Two implementations exist: OpenAI (primary) and
// Gemini (fallback).
package llm

import (
	"context"
	"errors"
	"time"
)

// completionTimeout bounds a single backend call.
const completionTimeout = 30 * time.Second

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = errors.New("llm: backend returned empty completion")

// Options are per-call sampling parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Provider is a generative backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Name identifies the backend in logs and persisted artifacts.
	Name() string
	// Complete generates text for a single instruction prompt.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}
