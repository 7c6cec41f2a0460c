package review

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type captured struct {
	auth        string
	contentType string
	body        request
	calls       int
}

func newServer(t *testing.T, status int, response string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.calls++
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got.body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestReviewSendsDiff(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"review":"LGTM"}`, &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL, Agent: "code-review"})

	feedback, err := client.Review(context.Background(), "diff --git a/x b/x")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if feedback != "LGTM" {
		t.Fatalf("unexpected feedback %q", feedback)
	}
	if got.auth != "Bearer k" || got.contentType != "application/json" {
		t.Fatalf("unexpected headers %q %q", got.auth, got.contentType)
	}
	if got.body.Agent != "code-review" || got.body.Input != "diff --git a/x b/x" {
		t.Fatalf("unexpected request body %+v", got.body)
	}
}

// TestReviewEmptyDiffStillCalls tests that an empty diff is forwarded unchanged.
func TestReviewEmptyDiffStillCalls(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"review":"nothing to review"}`, &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL})

	if _, err := client.Review(context.Background(), ""); err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.calls != 1 || got.body.Input != "" {
		t.Fatalf("expected one call with empty input, got %d %+v", got.calls, got.body)
	}
}

func TestReviewMissingAPIKey(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{}`, &got)
	client := newTestClient(t, Config{APIKey: "  ", Endpoint: srv.URL})

	if _, err := client.Review(context.Background(), "diff"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected no network call, got %d", got.calls)
	}
}

func TestReviewFallbackFeedback(t *testing.T) {
	cases := map[string]string{
		"missing field": `{"other":"x"}`,
		"null field":    `{"review":null}`,
	}
	for name, response := range cases {
		var got captured
		srv := newServer(t, http.StatusOK, response, &got)
		client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL})
		feedback, err := client.Review(context.Background(), "diff")
		if err != nil {
			t.Fatalf("%s: review: %v", name, err)
		}
		if feedback != FallbackFeedback {
			t.Fatalf("%s: expected fallback, got %q", name, feedback)
		}
	}
}

func TestReviewCustomFeedbackPath(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"data":{"comments":"nested"}}`, &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL, FeedbackPath: "$.data.comments"})

	feedback, err := client.Review(context.Background(), "diff")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if feedback != "nested" {
		t.Fatalf("unexpected feedback %q", feedback)
	}
}

func TestReviewNonStringFeedback(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"review":{"score":3}}`, &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL})

	feedback, err := client.Review(context.Background(), "diff")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if feedback != `{"score":3}` {
		t.Fatalf("unexpected feedback %q", feedback)
	}
}

func TestReviewStatusError(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusUnauthorized, "bad key\n", &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL})

	_, err := client.Review(context.Background(), "diff")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Body != "bad key" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if statusErr.Error() != "review api call failed: 401, bad key" {
		t.Fatalf("unexpected message %q", statusErr.Error())
	}
}

func TestReviewInvalidJSON(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, "not json", &got)
	client := newTestClient(t, Config{APIKey: "k", Endpoint: srv.URL})

	if _, err := client.Review(context.Background(), "diff"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewClientRejectsBadPath(t *testing.T) {
	if _, err := NewClient(Config{FeedbackPath: "$["}); err == nil {
		t.Fatalf("expected invalid feedback path error")
	}
}
