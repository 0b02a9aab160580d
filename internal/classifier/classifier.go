// Package classifier scores free-text input against the capability taxonomy.
// It is a pure function over keyword tables: no network, no hidden state, so
// the same input always produces the same output. The heuristic table can be
// swapped for a model-backed scorer behind the same Detection contract.
package classifier

import (
	"regexp"
	"strings"
)

// Capability tags the kinds of work the tool engine and workers understand.
type Capability string

const (
	CapImageGeneration  Capability = "image-generation"
	CapVideoGeneration  Capability = "video-generation"
	CapWebSearch        Capability = "web-search"
	CapCodeGeneration   Capability = "code-generation"
	CapDocumentCreation Capability = "document-creation"
	CapDataAnalysis     Capability = "data-analysis"
	CapMultiAgent       Capability = "multi-agent"
)

// Detection is the classifier verdict for one input.
type Detection struct {
	// Capabilities is an ordered set: detection order follows where each
	// capability first matched in the text.
	Capabilities []Capability
	// Scores holds the per-capability confidence, 0-100.
	Scores map[Capability]int
	// Confidence is the strongest capability score, 0-100.
	Confidence int
	// Params holds structured parameters extracted from the text
	// (aspect_ratio, duration_seconds, count).
	Params map[string]string
	// SuggestedRoute is set instead of silently picking one path when two
	// mutually exclusive high-confidence matches occur, so the caller can
	// execute directly or hand off to the heavier workflow.
	SuggestedRoute Capability
}

const (
	primaryWeight   = 50
	keywordWeight   = 20
	paramWeight     = 15
	detectThreshold = 50
	routeThreshold  = 70
	longTextLen     = 180
)

type rule struct {
	cap      Capability
	primary  []string // imperative phrases, one match scores primaryWeight
	keywords []string // corroborating words, each scores keywordWeight
	params   []string // structured parameter names relevant to this capability
}

// taxonomy order is fixed; detection order is re-sorted by match position.
var taxonomy = []rule{
	{
		cap:      CapWebSearch,
		primary:  []string{"search for", "search the web", "look up", "find information", "find out", "what is the latest"},
		keywords: []string{"search", "latest", "news", "trends", "current", "recent", "today"},
	},
	{
		cap:      CapImageGeneration,
		primary:  []string{"generate an image", "generate image", "create an image", "create image", "draw a picture", "make an image", "generate a picture", "generate a logo"},
		keywords: []string{"image", "picture", "photo", "illustration", "logo", "artwork", "wallpaper"},
		params:   []string{"aspect_ratio", "count"},
	},
	{
		cap:      CapVideoGeneration,
		primary:  []string{"generate a video", "create a video", "make a video", "animate"},
		keywords: []string{"video", "clip", "animation", "footage"},
		params:   []string{"aspect_ratio", "duration_seconds", "count"},
	},
	{
		cap:      CapCodeGeneration,
		primary:  []string{"write code", "write a function", "write a script", "generate code", "implement", "build an app", "create a program", "fix this bug", "debug"},
		keywords: []string{"code", "function", "script", "python", "javascript", "api", "bug", "algorithm", "refactor"},
	},
	{
		cap:      CapDocumentCreation,
		primary:  []string{"write a document", "create a document", "write a report", "write an essay", "draft a", "create a presentation"},
		keywords: []string{"document", "report", "essay", "article", "presentation", "resume", "letter", "blog"},
	},
	{
		cap:      CapDataAnalysis,
		primary:  []string{"analyze", "analyse", "summarize the data", "run statistics"},
		keywords: []string{"data", "dataset", "csv", "statistics", "chart", "graph", "spreadsheet"},
	},
	{
		cap:      CapMultiAgent,
		primary:  []string{"team of", "multiple agents", "work together", "coordinate", "collaborate"},
		keywords: []string{"agents", "team", "workflow", "pipeline", "orchestrate", "employees", "delegate"},
	},
}

var (
	aspectRatioRe = regexp.MustCompile(`\b(\d{1,2}:\d{1,2})\b`)
	durationRe    = regexp.MustCompile(`\b(\d{1,4})\s*(?:s|sec|secs|second|seconds)\b`)
	countRe       = regexp.MustCompile(`\b(\d{1,3})\s+(?:images|pictures|photos|videos|clips|variations)\b`)
)

// Classify scores the input against the taxonomy. An empty or whitespace-only
// input yields an empty detection.
func Classify(text string) Detection {
	det := Detection{
		Scores: make(map[Capability]int),
		Params: map[string]string{},
	}
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return det
	}

	extractParams(lower, det.Params)

	type hit struct {
		cap   Capability
		score int
		pos   int
	}
	var hits []hit

	for _, r := range taxonomy {
		score := 0
		pos := len(lower)

		for _, p := range r.primary {
			if i := strings.Index(lower, p); i >= 0 {
				score += primaryWeight
				if i < pos {
					pos = i
				}
				break
			}
		}
		for _, k := range r.keywords {
			if i := indexWord(lower, k); i >= 0 {
				score += keywordWeight
				if i < pos {
					pos = i
				}
			}
		}
		for _, p := range r.params {
			if _, ok := det.Params[p]; ok {
				score += paramWeight
				break
			}
		}

		if score > 100 {
			score = 100
		}
		if score >= detectThreshold {
			hits = append(hits, hit{cap: r.cap, score: score, pos: pos})
			det.Scores[r.cap] = score
			if score > det.Confidence {
				det.Confidence = score
			}
		}
	}

	// Detection order = position of the earliest match in the text.
	// Insertion sort keeps the taxonomy order as a stable tie-break.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	for _, h := range hits {
		det.Capabilities = append(det.Capabilities, h.cap)
	}

	// Long, complex requests that look like both a coding job and a
	// multi-agent job are flagged rather than resolved here.
	if det.Scores[CapCodeGeneration] >= routeThreshold &&
		det.Scores[CapMultiAgent] >= routeThreshold &&
		len(text) > longTextLen {
		det.SuggestedRoute = CapMultiAgent
	}

	return det
}

// indexWord finds k as a whole word, so "art" does not match "start".
func indexWord(s, k string) int {
	start := 0
	for {
		i := strings.Index(s[start:], k)
		if i < 0 {
			return -1
		}
		i += start
		before := i == 0 || !isWordChar(s[i-1])
		afterIdx := i + len(k)
		after := afterIdx >= len(s) || !isWordChar(s[afterIdx])
		if before && after {
			return i
		}
		start = i + len(k)
		if start >= len(s) {
			return -1
		}
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

func extractParams(lower string, out map[string]string) {
	if m := aspectRatioRe.FindStringSubmatch(lower); m != nil {
		out["aspect_ratio"] = m[1]
	}
	if m := durationRe.FindStringSubmatch(lower); m != nil {
		out["duration_seconds"] = m[1]
	}
	if m := countRe.FindStringSubmatch(lower); m != nil {
		out["count"] = m[1]
	}
}
