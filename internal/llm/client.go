// Package llm provides the OpenAI-compatible text-completion client.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gpotter/worksheetbot/internal/config"
)

// Turn is a prior conversation message forwarded to the completion API.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the opaque text-completion collaborator: system instruction,
// prior turns, user request in; generated text out.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn, user string) (string, error)
	// StreamComplete invokes onDelta for each generated chunk and returns
	// the full text.
	StreamComplete(ctx context.Context, system string, turns []Turn, user string, onDelta func(delta string)) (string, error)
}

// UpstreamError reports a failed completion call with the HTTP status and a
// snippet of the response body.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion service returned %d: %s", e.Status, e.Body)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Completer = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.CompletionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *Client) buildMessages(system string, turns []Turn, user string) []Turn {
	messages := make([]Turn, 0, len(turns)+2)
	messages = append(messages, Turn{Role: "system", Content: system})
	messages = append(messages, turns...)
	messages = append(messages, Turn{Role: "user", Content: user})
	return messages
}

// Complete performs one non-streaming completion. Deterministic generation
// (temperature 0) keeps worksheet output stable across retries.
func (c *Client) Complete(ctx context.Context, system string, turns []Turn, user string) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    c.buildMessages(system, turns, user),
		Temperature: 0,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			c.logger.Warn("retrying completion call", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.doComplete(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) doComplete(ctx context.Context, body chatRequest) (text string, retryable bool, err error) {
	resp, err := c.post(ctx, body)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, upstreamError(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("completion response carried no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// StreamComplete performs a streaming completion, invoking onDelta for each
// chunk. Streaming calls are not retried: a partial stream may already have
// reached the caller.
func (c *Client) StreamComplete(ctx context.Context, system string, turns []Turn, user string, onDelta func(delta string)) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    c.buildMessages(system, turns, user),
		Temperature: 0,
		Stream:      true,
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(resp)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var parsed chatResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			return full.String(), fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(parsed.Choices) == 0 {
			continue
		}
		if delta := parsed.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read completion stream: %w", err)
	}
	return full.String(), nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completion service: %w", err)
	}
	return resp, nil
}

func upstreamError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}
