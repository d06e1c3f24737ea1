// Package lookup fetches live search snippets for assistant-mode prompts.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoResultsText is what the prompt receives when nothing came back.
const NoResultsText = "No live scores available."

// DefaultLimit caps how many snippets make it into the prompt so the scores
// block cannot crowd out the conversation.
const DefaultLimit = 5

// Result is one search hit.
type Result struct {
	Title   string
	Snippet string
}

// Searcher is the lookup collaborator consumed by the assistant service.
type Searcher interface {
	Results(ctx context.Context, query string) ([]Result, error)
}

// Client queries the DuckDuckGo Instant Answer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// NewClient builds a lookup client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type instantAnswer struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Results runs the query and flattens the instant answer into Result values.
func (c *Client) Results(ctx context.Context, query string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call lookup service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("lookup service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	var results []Result
	if answer.AbstractText != "" {
		results = append(results, Result{Title: answer.Heading, Snippet: answer.AbstractText})
	}
	for _, topic := range answer.RelatedTopics {
		if topic.Text != "" {
			results = append(results, Result{Snippet: topic.Text})
		}
	}
	return results, nil
}

// FormatResults turns results into the bullet list injected into the system
// prompt, truncated to limit entries (DefaultLimit when limit <= 0).
func FormatResults(results []Result, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	var lines []string
	for _, r := range results {
		if r.Title == "" && r.Snippet == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
	}
	if len(lines) == 0 {
		return NoResultsText
	}
	return strings.Join(lines, "\n")
}
