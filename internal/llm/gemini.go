package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

const geminiDefault = "gemini-2.0-flash"

type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(cfg Config) (*geminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = geminiDefault
	}
	return &geminiClient{client: c, model: model}, nil
}

func (c *geminiClient) DefaultModel() string { return c.model }

func (c *geminiClient) resolveModel(model string) string {
	m := strings.TrimSpace(model)
	if m == "" {
		return c.model
	}
	if !strings.HasPrefix(strings.ToLower(m), "gemini-") {
		return c.model
	}
	return m
}

func (c *geminiClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.resolveModel(model), genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *geminiClient) CompleteJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if schema != nil {
		cfg.ResponseJsonSchema = schema
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.resolveModel(model), genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate json: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty json response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *geminiClient) Stream(ctx context.Context, prompt, model string, onChunk func(string)) (string, error) {
	if c.client == nil {
		return "", ErrNotInitialized
	}
	var out strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.resolveModel(model), genai.Text(prompt), nil) {
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			out.WriteString(part.Text)
			if onChunk != nil {
				onChunk(part.Text)
			}
		}
	}
	return out.String(), nil
}
