package tools

import (
	"context"
	"os"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/llm"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// BuildDefaultEngine wires the standard tool catalog. Chains end in an
// always-available baseline wherever one exists, so a missing API key
// degrades quality instead of breaking the tool.
func BuildDefaultEngine(ctx context.Context, store *mission.Store, client llm.Client, timeout time.Duration) *Engine {
	e := NewEngine(store, timeout)

	var searchChain []Provider
	if endpoint := os.Getenv("SEARCH_API_URL"); endpoint != "" {
		searchChain = append(searchChain, &APISearchProvider{
			Endpoint: endpoint,
			APIKey:   os.Getenv("SEARCH_API_KEY"),
		})
	}
	searchChain = append(searchChain, &DuckDuckGoProvider{})
	e.Register("web-search", 0, searchChain...)

	var imageChain []Provider
	if imagen, err := NewGeminiImageProvider(ctx, os.Getenv("ARTIFACT_DIR")); err == nil {
		imageChain = append(imageChain, imagen)
	} else {
		logger.Log.Printf("[tools] imagen provider unavailable: %v", err)
	}
	imageChain = append(imageChain, &PlaceholderMediaProvider{Kind: "image"})
	e.Register("image-generation", 60*time.Second, imageChain...)

	e.Register("video-generation", 60*time.Second,
		&LLMProvider{ProviderName: "storyboard", Client: client, Instruction: "Write a shot-by-shot storyboard for the requested video."},
		&PlaceholderMediaProvider{Kind: "video"},
	)
	e.Register("code-generation", 0,
		&LLMProvider{ProviderName: "codegen", Client: client, Instruction: "Write clean, working code for the request. Output only the code and brief usage notes."},
	)
	e.Register("document-creation", 0,
		&LLMProvider{ProviderName: "docwriter", Client: client, Instruction: "Write the requested document in full, well structured."},
	)
	e.Register("data-analysis", 0,
		&LLMProvider{ProviderName: "analyst", Client: client, Instruction: "Analyze the provided data and report the findings with concrete numbers."},
	)

	return e
}
