package webhook

import (
	"net/http"
	"testing"
	"time"

	"reviewhooks/pkg/auth"
	glprovider "reviewhooks/pkg/providers/gitlab"
)

func newGitLabAdapter(t *testing.T, secret string) *glprovider.Adapter {
	t.Helper()
	adapter, err := glprovider.NewAdapter(auth.ProviderConfig{Secret: secret, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("gitlab adapter: %v", err)
	}
	return adapter
}

func TestGitLabTokenVerifier(t *testing.T) {
	verify := GitLabToken(newGitLabAdapter(t, "hook-token"))
	header := http.Header{}
	header.Set("X-Gitlab-Event", "Merge Request Hook")
	if verify.Check(header, nil) {
		t.Fatalf("expected missing token to be rejected")
	}
	header.Set("X-Gitlab-Token", "wrong")
	if verify.Check(header, nil) {
		t.Fatalf("expected wrong token to be rejected")
	}
	header.Set("X-Gitlab-Token", "hook-token")
	if !verify.Check(header, nil) {
		t.Fatalf("expected matching token to be accepted")
	}
	if verify.Rejection != "Invalid GitLab token" {
		t.Fatalf("unexpected rejection message %q", verify.Rejection)
	}
}

func TestDispatchGitLabTokenRequired(t *testing.T) {
	adapter := newGitLabAdapter(t, "hook-token")
	verify := GitLabToken(adapter)
	reviewer := &stubReviewer{}
	d := NewDispatcher(reviewer, WithRoute(Route{Adapter: adapter, Verify: &verify}))

	header := http.Header{}
	header.Set("X-Gitlab-Event", "Merge Request Hook")
	header.Set("X-Gitlab-Token", "other")
	body := `{"object_kind":"merge_request","project":{"id":42},"object_attributes":{"iid":3,"action":"open"}}`
	rec, resp := serve(t, d, header, body)

	if rec.Code != http.StatusForbidden || resp.Message != "Invalid GitLab token" {
		t.Fatalf("expected 403 invalid token, got %d %+v", rec.Code, resp)
	}
	if reviewer.calls != 0 {
		t.Fatalf("expected no review for rejected delivery")
	}
}

// TestDispatchGitLabTokenAccepted tests that a matching token reaches identification.
func TestDispatchGitLabTokenAccepted(t *testing.T) {
	adapter := newGitLabAdapter(t, "hook-token")
	verify := GitLabToken(adapter)
	d := NewDispatcher(&stubReviewer{}, WithRoute(Route{Adapter: adapter, Verify: &verify}))

	header := http.Header{}
	header.Set("X-Gitlab-Event", "Merge Request Hook")
	header.Set("X-Gitlab-Token", "hook-token")
	body := `{"object_kind":"merge_request","project":{"id":42},"object_attributes":{"iid":3,"action":"close"}}`
	rec, resp := serve(t, d, header, body)

	if rec.Code != http.StatusOK || resp.Status != StatusIgnored || resp.Message != "Event not handled" {
		t.Fatalf("expected ignored close event, got %d %+v", rec.Code, resp)
	}
}
