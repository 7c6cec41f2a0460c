package gitlab

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"reviewhooks/pkg/auth"
	"reviewhooks/pkg/scm"

	hook "github.com/go-playground/webhooks/v6/gitlab"
	"github.com/sirupsen/logrus"
	gl "github.com/xanzy/go-gitlab"
)

// EventHeader carries the GitLab event name.
const EventHeader = "X-Gitlab-Event"

// TokenHeader carries the secret token configured on the GitLab hook.
const TokenHeader = "X-Gitlab-Token"

const diffPageSize = 100

var reviewableActions = map[string]struct{}{
	"open":   {},
	"update": {},
}

// Adapter reviews GitLab merge requests.
type Adapter struct {
	client   *Client
	hook     *hook.Webhook
	hasToken bool
	logger   *logrus.Entry
}

// NewAdapter builds an Adapter backed by a token client. When cfg.Secret is
// set, deliveries must carry it in X-Gitlab-Token.
func NewAdapter(cfg auth.ProviderConfig, logger *logrus.Entry) (*Adapter, error) {
	client, err := NewTokenClient(cfg)
	if err != nil {
		return nil, err
	}
	options := make([]hook.Option, 0, 1)
	if cfg.Secret != "" {
		options = append(options, hook.Options.Secret(cfg.Secret))
	}
	parser, err := hook.New(options...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{client: client, hook: parser, hasToken: cfg.Token != "", logger: logger}, nil
}

func (a *Adapter) Provider() string { return scm.ProviderGitLab }

func (a *Adapter) EventHeader() string { return EventHeader }

// VerifyToken reports whether the delivery carries the configured
// X-Gitlab-Token. Always true when no secret is configured.
func (a *Adapter) VerifyToken(header http.Header, _ []byte) bool {
	_, err := a.parse(header, nil)
	return !errors.Is(err, hook.ErrGitLabTokenVerificationFailed)
}

// Identify accepts merge request hooks that open or update an MR.
func (a *Adapter) Identify(header http.Header, body []byte) (scm.Target, bool) {
	if !strings.EqualFold(strings.TrimSpace(header.Get(EventHeader)), string(hook.MergeRequestEvents)) {
		return scm.Target{}, false
	}
	parsed, err := a.parse(header, body)
	if err != nil {
		a.logger.WithError(err).Debug("gitlab parse failed")
		return scm.Target{}, false
	}
	payload, ok := parsed.(hook.MergeRequestEventPayload)
	if !ok {
		return scm.Target{}, false
	}
	action := payload.ObjectAttributes.Action
	if _, ok := reviewableActions[action]; !ok {
		return scm.Target{}, false
	}
	if payload.Project.ID <= 0 || payload.ObjectAttributes.IID <= 0 {
		return scm.Target{}, false
	}
	return scm.Target{
		Provider:   scm.ProviderGitLab,
		Repository: strconv.FormatInt(payload.Project.ID, 10),
		Number:     int(payload.ObjectAttributes.IID),
		Action:     action,
	}, true
}

// parse runs the delivery through the webhook parser. The event name is
// matched case-insensitively, so it is rewritten to its canonical form.
func (a *Adapter) parse(header http.Header, body []byte) (interface{}, error) {
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if strings.EqualFold(strings.TrimSpace(req.Header.Get(EventHeader)), string(hook.MergeRequestEvents)) {
		req.Header.Set(EventHeader, string(hook.MergeRequestEvents))
	}
	return a.hook.Parse(req, hook.MergeRequestEvents)
}

// FetchDiff pages through the merge request diffs and joins every fragment
// with a newline, in listing order.
func (a *Adapter) FetchDiff(ctx context.Context, target scm.Target) (string, error) {
	if !a.hasToken {
		return "", &scm.DiffFetchError{Target: target, Err: scm.ErrMissingToken}
	}
	opts := &gl.ListMergeRequestDiffsOptions{
		ListOptions: gl.ListOptions{PerPage: diffPageSize},
	}
	var fragments []string
	for {
		diffs, resp, err := a.client.MergeRequests.ListMergeRequestDiffs(target.Repository, target.Number, opts, gl.WithContext(ctx))
		if err != nil {
			a.logger.WithError(err).Errorf("gitlab diff fetch failed for %s", target)
			return "", &scm.DiffFetchError{Target: target, Err: err}
		}
		for _, d := range diffs {
			fragments = append(fragments, d.Diff)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	diff := strings.Join(fragments, "\n")
	if strings.TrimSpace(diff) == "" {
		return "", &scm.DiffFetchError{Target: target, Err: scm.ErrEmptyDiff}
	}
	return diff, nil
}

// PostFeedback creates a note on the merge request.
func (a *Adapter) PostFeedback(ctx context.Context, target scm.Target, feedback string) error {
	if !a.hasToken {
		return &scm.PostError{Target: target, Err: scm.ErrMissingToken}
	}
	body := feedback
	_, _, err := a.client.Notes.CreateMergeRequestNote(target.Repository, target.Number, &gl.CreateMergeRequestNoteOptions{
		Body: &body,
	}, gl.WithContext(ctx))
	if err != nil {
		a.logger.WithError(err).Errorf("gitlab note failed for %s", target)
		return &scm.PostError{Target: target, Err: err}
	}
	return nil
}
