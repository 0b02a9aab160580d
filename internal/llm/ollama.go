package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const ollamaDefault = "phi4:latest"

type ollamaClient struct {
	client *api.Client
	model  string
}

func newOllamaClient(cfg Config) (*ollamaClient, error) {
	c, err := api.ClientFromEnvironment()
	if err != nil {
		host := cfg.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		u, uerr := url.Parse(host)
		if uerr != nil {
			return nil, fmt.Errorf("ollama: bad host %q: %w", host, uerr)
		}
		c = api.NewClient(u, nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = ollamaDefault
	}
	return &ollamaClient{client: c, model: model}, nil
}

func (c *ollamaClient) DefaultModel() string { return c.model }

func (c *ollamaClient) resolveModel(model string) string {
	if m := strings.TrimSpace(model); m != "" && !strings.HasPrefix(strings.ToLower(m), "gemini-") {
		return m
	}
	return c.model
}

func (c *ollamaClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	stream := false
	req := &api.GenerateRequest{
		Model:  c.resolveModel(model),
		Prompt: prompt,
		Stream: &stream,
	}
	var out strings.Builder
	if err := c.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}

func (c *ollamaClient) CompleteJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	var fmtRaw json.RawMessage
	if schema != nil {
		b, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("ollama marshal schema: %w", err)
		}
		fmtRaw = b
	} else {
		fmtRaw = json.RawMessage(`"json"`)
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  c.resolveModel(model),
		Prompt: prompt + "\n\nReturn ONLY strict JSON. No extra text.",
		Format: fmtRaw,
		Stream: &stream,
	}
	var out strings.Builder
	if err := c.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate json: %w", err)
	}
	return out.String(), nil
}

func (c *ollamaClient) Stream(ctx context.Context, prompt, model string, onChunk func(string)) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	stream := true
	req := &api.GenerateRequest{
		Model:  c.resolveModel(model),
		Prompt: prompt,
		Stream: &stream,
	}
	var out strings.Builder
	if err := c.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		if onChunk != nil && gr.Response != "" {
			onChunk(gr.Response)
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama stream: %w", err)
	}
	return out.String(), nil
}
