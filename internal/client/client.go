// Package client talks to the remote explanation/quiz service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"elix-client/internal/models"
)

// Client is the HTTP client for the explanation/quiz service. Streaming
// responses are returned as raw bodies for the stream decoder; everything
// else is decoded here.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: /explain/stream stays open for the whole
		// generation. Per-request deadlines come from the caller's ctx.
		http: &http.Client{},
	}
}

// Topics fetches the available topic packs.
func (c *Client) Topics(ctx context.Context) (models.TopicPacks, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/topics", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build topics request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("topics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("topics request returned status %d", resp.StatusCode)
	}

	var packs models.TopicPacks
	if err := json.NewDecoder(resp.Body).Decode(&packs); err != nil {
		return nil, fmt.Errorf("failed to decode topic packs: %w", err)
	}
	return packs, nil
}

// Explain requests the non-streaming explanation variant.
func (c *Client) Explain(ctx context.Context, topic string, age int) (*models.ExplainResponse, error) {
	body, err := c.postJSON(ctx, "/explain", models.ExplainRequest{Topic: topic, Age: age})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var out models.ExplainResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode explanation: %w", err)
	}
	return &out, nil
}

// ExplainStream opens the streamed explanation response. The caller owns
// the returned body and feeds it to the stream decoder.
func (c *Client) ExplainStream(ctx context.Context, topic string, age int, conversationContext string) (io.ReadCloser, error) {
	return c.postJSON(ctx, "/explain/stream", models.ExplainRequest{
		Topic:   topic,
		Age:     age,
		Context: conversationContext,
	})
}

// GenerateQuiz requests quiz generation. A server-reported error payload
// is surfaced as an error so setup state can be retained for retry.
func (c *Client) GenerateQuiz(ctx context.Context, req models.QuizGenerateRequest) (*models.QuizGenerateResponse, error) {
	body, err := c.postJSON(ctx, "/quiz/generate", req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var out models.QuizGenerateResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode quiz: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("quiz generation failed: %s", out.Error)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("quiz generation returned no questions")
	}
	return &out, nil
}

// AudioURL resolves an audio_url path against the service base URL.
func (c *Client) AudioURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
