package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// FallbackFeedback is returned when the endpoint answers without feedback.
const FallbackFeedback = "No feedback returned"

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("review: api key is not configured")

// StatusError reports a non-2xx answer from the review endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("review api call failed: %d, %s", e.StatusCode, e.Body)
}

// Config holds the review endpoint settings.
type Config struct {
	APIKey   string
	Endpoint string
	Agent    string
	// FeedbackPath is a JSONPath into the response, e.g. "$.review".
	FeedbackPath string
	Timeout      time.Duration
}

// Client sends diffs to the review endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

type request struct {
	Agent string `json:"agent"`
	Input string `json:"input"`
}

// NewClient creates a Client. The JSONPath is validated up front.
func NewClient(cfg Config) (*Client, error) {
	if cfg.FeedbackPath == "" {
		cfg.FeedbackPath = "$.review"
	}
	if _, err := jsonpath.New(cfg.FeedbackPath); err != nil {
		return nil, fmt.Errorf("feedback path %q: %w", cfg.FeedbackPath, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Review submits diffText and returns the review text.
func (c *Client) Review(ctx context.Context, diffText string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	raw, err := json.Marshal(request{Agent: c.cfg.Agent, Input: diffText})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("review api call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var data interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode review response: %w", err)
	}
	return c.feedback(data), nil
}

func (c *Client) feedback(data interface{}) string {
	value, err := jsonpath.Get(c.cfg.FeedbackPath, data)
	if err != nil || value == nil {
		return FallbackFeedback
	}
	if text, ok := value.(string); ok {
		return text
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return FallbackFeedback
	}
	return string(encoded)
}
