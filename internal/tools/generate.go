package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/llm"
)

// LLMProvider serves text-producing capabilities (code-generation,
// document-creation, data-analysis) through a model backend. Ranking two of
// these with different backends gives the chain a real fallback.
type LLMProvider struct {
	ProviderName string
	Client       llm.Client
	Model        string
	// Instruction frames the capability, e.g. "Write clean, working code".
	Instruction string
}

func (p *LLMProvider) Name() string { return p.ProviderName }

func (p *LLMProvider) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	prompt, err := stringParam(params, "prompt")
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if p.Instruction != "" {
		sb.WriteString(p.Instruction)
		sb.WriteString("\n\n")
	}
	if ctxText, ok := params["context"].(string); ok && strings.TrimSpace(ctxText) != "" {
		sb.WriteString("CONTEXT FROM EARLIER STEPS:\n")
		sb.WriteString(ctxText)
		sb.WriteString("\n\n")
	}
	sb.WriteString(prompt)

	text, err := p.Client.Complete(ctx, sb.String(), p.Model)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", p.ProviderName, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s returned empty output", p.ProviderName)
	}
	return map[string]any{"content": text}, nil
}
