// Package web provides a Toolkit that fetches URLs and extracts their
// readable text content.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/ingest"
)

// Toolkit fetches URLs and extracts readable content from the resulting HTML.
type Toolkit struct {
	client *http.Client
}

// New creates a Toolkit with a 15-second fetch timeout.
func New() *Toolkit {
	return &Toolkit{client: &http.Client{Timeout: 15 * time.Second}}
}

var _ archway.Toolkit = (*Toolkit)(nil)

func (t *Toolkit) Guidelines() string {
	return "http_fetch downloads a URL and returns its readable text content (article body, stripped of navigation and markup), truncated to 8000 characters."
}

func (t *Toolkit) ProvideTools() []archway.Tool {
	return []archway.Tool{
		{
			Name:        "http_fetch",
			Description: "Fetch a URL and extract its readable text content. Use for reading web pages, articles, documentation.",
			Parameters: []archway.ToolProperty{
				{Name: "url", Type: archway.PropertyString, Description: "URL to fetch", Required: true},
			},
			Callable: t.fetchTool,
		},
	}
}

func (t *Toolkit) fetchTool(ctx context.Context, inputs map[string]any) (string, error) {
	rawURL, _ := inputs["url"].(string)
	content, err := t.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if len(content) > 8000 {
		content = content[:8000] + "\n... (truncated)"
	}
	return content, nil
}

// Fetch downloads a URL and extracts readable text. Exported for reuse by
// other tools that need raw page content (e.g. a RAG ingest pipeline).
func (t *Toolkit) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ArchwayBot/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}

	html := string(body)

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err == nil && article.TextContent != "" {
		return strings.TrimSpace(article.TextContent), nil
	}

	return ingest.StripHTML(html), nil
}
