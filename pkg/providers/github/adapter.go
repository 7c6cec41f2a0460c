package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"reviewhooks/pkg/auth"
	"reviewhooks/pkg/scm"

	hook "github.com/go-playground/webhooks/v6/github"
	gh "github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
)

// EventHeader carries the GitHub event name.
const EventHeader = "X-GitHub-Event"

// SignatureHeader carries the HMAC-SHA256 signature of the body.
const SignatureHeader = "X-Hub-Signature-256"

var errInvalidRepository = errors.New("github repository must be owner/name")

var reviewableActions = map[string]struct{}{
	"opened":      {},
	"synchronize": {},
	"reopened":    {},
}

// Adapter reviews GitHub pull requests.
type Adapter struct {
	client   *Client
	hasToken bool
	logger   *logrus.Entry
}

// NewAdapter builds an Adapter backed by a token client.
func NewAdapter(ctx context.Context, cfg auth.ProviderConfig, logger *logrus.Entry) (*Adapter, error) {
	client, err := NewTokenClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{client: client, hasToken: cfg.Token != "", logger: logger}, nil
}

func (a *Adapter) Provider() string { return scm.ProviderGitHub }

func (a *Adapter) EventHeader() string { return EventHeader }

// Identify accepts pull_request deliveries that open, reopen or push to a PR.
func (a *Adapter) Identify(header http.Header, body []byte) (scm.Target, bool) {
	if header.Get(EventHeader) != string(hook.PullRequestEvent) {
		return scm.Target{}, false
	}
	var payload hook.PullRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return scm.Target{}, false
	}
	if _, ok := reviewableActions[payload.Action]; !ok {
		return scm.Target{}, false
	}
	if _, _, ok := splitFullName(payload.Repository.FullName); !ok || payload.Number <= 0 {
		return scm.Target{}, false
	}
	return scm.Target{
		Provider:   scm.ProviderGitHub,
		Repository: payload.Repository.FullName,
		Number:     int(payload.Number),
		Action:     payload.Action,
	}, true
}

// FetchDiff downloads the unified diff of the pull request.
func (a *Adapter) FetchDiff(ctx context.Context, target scm.Target) (string, error) {
	owner, repo, err := a.ref(target)
	if err != nil {
		return "", &scm.DiffFetchError{Target: target, Err: err}
	}
	diff, _, err := a.client.PullRequests.GetRaw(ctx, owner, repo, target.Number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		a.logger.WithError(err).Errorf("github diff fetch failed for %s", target)
		return "", &scm.DiffFetchError{Target: target, Err: err}
	}
	if strings.TrimSpace(diff) == "" {
		return "", &scm.DiffFetchError{Target: target, Err: scm.ErrEmptyDiff}
	}
	return diff, nil
}

// PostFeedback creates an issue comment on the pull request.
func (a *Adapter) PostFeedback(ctx context.Context, target scm.Target, feedback string) error {
	owner, repo, err := a.ref(target)
	if err != nil {
		return &scm.PostError{Target: target, Err: err}
	}
	_, _, err = a.client.Issues.CreateComment(ctx, owner, repo, target.Number, &gh.IssueComment{
		Body: gh.String(feedback),
	})
	if err != nil {
		a.logger.WithError(err).Errorf("github comment failed for %s", target)
		return &scm.PostError{Target: target, Err: err}
	}
	return nil
}

func (a *Adapter) ref(target scm.Target) (string, string, error) {
	if !a.hasToken {
		return "", "", scm.ErrMissingToken
	}
	owner, repo, ok := splitFullName(target.Repository)
	if !ok {
		return "", "", errInvalidRepository
	}
	return owner, repo, nil
}

func splitFullName(full string) (string, string, bool) {
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
