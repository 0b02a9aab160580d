package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const imagenDefault = "imagen-3.0-generate-002"

// GeminiImageProvider renders images through the Imagen API and writes the
// bytes to OutputDir.
type GeminiImageProvider struct {
	client    *genai.Client
	Model     string
	OutputDir string
}

// NewGeminiImageProvider builds the provider from GEMINI_API_KEY.
func NewGeminiImageProvider(ctx context.Context, outputDir string) (*GeminiImageProvider, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen client init: %w", err)
	}
	if outputDir == "" {
		outputDir = "artifacts"
	}
	return &GeminiImageProvider{client: c, Model: imagenDefault, OutputDir: outputDir}, nil
}

func (p *GeminiImageProvider) Name() string { return "gemini-imagen" }

func (p *GeminiImageProvider) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	prompt, err := stringParam(params, "prompt")
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateImagesConfig{NumberOfImages: 1}
	if ar, ok := params["aspect_ratio"].(string); ok && ar != "" {
		cfg.AspectRatio = ar
	}

	resp, err := p.client.Models.GenerateImages(ctx, p.Model, prompt, cfg)
	if err != nil {
		return nil, fmt.Errorf("imagen generate: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("imagen: empty response")
	}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(p.OutputDir, uuid.New().String()[:8]+".png")
	if err := os.WriteFile(path, resp.GeneratedImages[0].Image.ImageBytes, 0644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	return map[string]any{"file": path, "content": "image written to " + path}, nil
}

// PlaceholderMediaProvider is the always-available baseline at the end of a
// media chain: it produces a generation brief instead of real pixels, so a
// mission still completes with a usable artifact description when every
// rendering provider is down.
type PlaceholderMediaProvider struct {
	Kind string // "image" or "video"
}

func (p *PlaceholderMediaProvider) Name() string { return "placeholder-" + p.Kind }

func (p *PlaceholderMediaProvider) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	prompt, err := stringParam(params, "prompt")
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s brief] %s", p.Kind, prompt)
	if ar, ok := params["aspect_ratio"].(string); ok && ar != "" {
		fmt.Fprintf(&sb, " (aspect ratio %s)", ar)
	}
	if d, ok := params["duration_seconds"].(string); ok && d != "" {
		fmt.Fprintf(&sb, " (duration %ss)", d)
	}
	return map[string]any{"content": sb.String(), "placeholder": true}, nil
}
