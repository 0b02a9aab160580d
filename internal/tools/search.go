package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

// SearchResult is one web search hit. Provider provenance is carried on the
// ToolCall, not per hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// APISearchProvider queries a JSON search API (the primary provider when
// SEARCH_API_URL is configured).
type APISearchProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (p *APISearchProvider) Name() string { return "search-api" }

func (p *APISearchProvider) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("search api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api status %d", resp.StatusCode)
	}

	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("search api decode: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("search api returned no results")
	}
	return map[string]any{"query": query, "results": out.Results, "summary": summarize(out.Results)}, nil
}

func (p *APISearchProvider) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

// DuckDuckGoProvider scrapes the HTML endpoint. It needs no key, which makes
// it the always-available baseline at the end of the chain.
type DuckDuckGoProvider struct {
	Endpoint string // overridable for tests
	Client   *http.Client
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; orchestrator/1.0)")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	results, err := parseSearchHTML(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("duckduckgo returned no results")
	}
	return map[string]any{"query": query, "results": results, "summary": summarize(results)}, nil
}

// parseSearchHTML extracts result links and snippets from the result page.
func parseSearchHTML(r io.Reader) ([]SearchResult, error) {
	root, err := xhtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var out []SearchResult
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.result__a").First()
		href, _ := a.Attr("href")
		res := SearchResult{
			Title:   strings.TrimSpace(a.Text()),
			URL:     decodeRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		}
		if res.Title != "" && res.URL != "" {
			out = append(out, res)
		}
	})
	return out, nil
}

// decodeRedirect unwraps the uddg redirect parameter when present.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return href
}

func summarize(results []SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i >= 5 {
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s (%s): %s\n", i+1, r.Title, r.URL, r.Snippet))
	}
	return sb.String()
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("params missing required key %q", key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("params key %q must be a non-empty string", key)
	}
	return s, nil
}
