// Package llm is the Language Model Service boundary. The core only ever
// talks to the Client interface; gemini and ollama are the two backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotInitialized = errors.New("llm client not initialized")

// Config selects and tunes a backend.
type Config struct {
	Backend    string // "gemini" (default) or "ollama"
	Model      string
	OllamaHost string
}

// Client is the model-calling contract the orchestration core depends on.
// Streamed chunks are progress events for the presentation layer; the core
// never parses a response mid-stream.
type Client interface {
	DefaultModel() string
	// Complete returns the full response text.
	Complete(ctx context.Context, prompt, model string) (string, error)
	// CompleteJSON forces strict JSON output, optionally schema-constrained.
	CompleteJSON(ctx context.Context, prompt, model string, schema any) (string, error)
	// Stream delivers chunks through onChunk as they arrive and returns the
	// assembled text. onChunk may be nil.
	Stream(ctx context.Context, prompt, model string, onChunk func(string)) (string, error)
}

// New builds the configured backend client.
func New(cfg Config) (Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	switch backend {
	case "gemini":
		return newGeminiClient(cfg)
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", backend)
	}
}
