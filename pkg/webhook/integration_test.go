package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reviewhooks/pkg/auth"
	"reviewhooks/pkg/providers/github"
	"reviewhooks/pkg/review"
)

// TestGitHubPullRequestEndToEnd drives a signed pull_request delivery through the
// real GitHub adapter and review client against fake upstream servers.
func TestGitHubPullRequestEndToEnd(t *testing.T) {
	var comments, diffs int32
	var (
		mu          sync.Mutex
		commentBody string
	)
	api := http.NewServeMux()
	api.HandleFunc("/repos/octo/repo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&diffs, 1)
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, "diff --git a/main.go b/main.go\n+fmt.Println(\"hi\")\n")
	})
	api.HandleFunc("/repos/octo/repo/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&comments, 1)
		var in struct {
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		mu.Lock()
		commentBody = in.Body
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	})
	githubSrv := httptest.NewServer(api)
	defer githubSrv.Close()

	reviewSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"review":"Consider adding a test."}`)
	}))
	defer reviewSrv.Close()

	adapter, err := github.NewAdapter(context.Background(), auth.ProviderConfig{
		Token:   "gh-token",
		BaseURL: githubSrv.URL,
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("github adapter: %v", err)
	}
	reviewer, err := review.NewClient(review.Config{APIKey: "key", Endpoint: reviewSrv.URL, Agent: "code-review"})
	if err != nil {
		t.Fatalf("review client: %v", err)
	}
	verify := GitHubSignature("mysecret")
	d := NewDispatcher(reviewer, WithRoute(Route{Adapter: adapter, Verify: &verify}))

	body := `{"action":"opened","number":7,"repository":{"full_name":"octo/repo"}}`
	rec, resp := serve(t, d, githubHeaders("mysecret", body), body)

	if rec.Code != http.StatusOK || resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %d %+v", rec.Code, resp)
	}
	if feedbackOf(resp) != "Consider adding a test." {
		t.Fatalf("expected review field as ai_feedback, got %q", feedbackOf(resp))
	}
	mu.Lock()
	posted := commentBody
	mu.Unlock()
	if n := atomic.LoadInt32(&comments); n != 1 || posted != feedbackOf(resp) {
		t.Fatalf("expected exactly one comment with the feedback, got %d %q", n, posted)
	}
	if n := atomic.LoadInt32(&diffs); n != 1 {
		t.Fatalf("expected one diff fetch, got %d", n)
	}
}
