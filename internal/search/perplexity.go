package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const PerplexityBaseURL = "https://api.perplexity.ai"

const (
	promptWithCitations    = "You search the internet for current information. Include detailed information with citations like [1], [2], etc."
	promptWithoutCitations = "You search the internet for current information. Provide a comprehensive answer without citations or source references."
)

// Perplexity calls the Perplexity chat completions endpoint.
type Perplexity struct {
	api       *httpx.Client
	model     string
	citations bool
}

func NewPerplexity(apiKey, model string, citations bool) *Perplexity {
	return &Perplexity{
		api:       httpx.New(PerplexityBaseURL, 10*time.Second, httpx.WithHeader("Authorization", "Bearer "+apiKey)),
		model:     model,
		citations: citations,
	}
}

// SetBaseURL points the client elsewhere (tests).
func (p *Perplexity) SetBaseURL(u string) { p.api.SetBaseURL(u) }

func (p *Perplexity) Model() string { return p.model }

func (p *Perplexity) Search(ctx context.Context, query string) (string, error) {
	system := promptWithoutCitations
	if p.citations {
		system = promptWithCitations
	}
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": query},
		},
	}
	resp, err := p.api.Do(ctx, "POST", "/chat/completions", nil, body, nil)
	if err != nil {
		return "", err
	}
	if resp.Status != 200 {
		slog.Warn("search: perplexity request failed", "status", resp.Status)
		return "", &APIError{Message: fmt.Sprintf("Failed to search: %d", resp.Status), Details: string(resp.Body)}
	}

	content := gjson.GetBytes(resp.Body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("perplexity response has no content")
	}
	if !p.citations {
		return content.String(), nil
	}
	return withSources(content.String(), gjson.GetBytes(resp.Body, "citations")), nil
}

// withSources replaces any model-written "Sources:" tail with a numbered
// list built from the citations array (strings or {url} objects).
func withSources(content string, citations gjson.Result) string {
	if i := strings.Index(content, "Sources:"); i >= 0 {
		content = strings.TrimSpace(content[:i])
	}
	var links []string
	n := 0
	citations.ForEach(func(_, c gjson.Result) bool {
		n++
		u := c.String()
		if c.IsObject() {
			u = c.Get("url").String()
		}
		if u != "" {
			links = append(links, fmt.Sprintf("[%d] %s", n, u))
		}
		return true
	})
	if len(links) == 0 {
		return content
	}
	return content + "\n\n**Sources:**\n" + strings.Join(links, "\n")
}
