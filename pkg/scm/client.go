package scm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// ErrMissingToken is returned when an adapter has no API credential.
var ErrMissingToken = errors.New("scm: api token is not configured")

// ErrEmptyDiff is returned when the provider reports no changes.
var ErrEmptyDiff = errors.New("scm: diff is empty")

// Target identifies the pull or merge request a webhook refers to.
type Target struct {
	Provider string
	// Repository is "owner/name" on GitHub and the numeric project ID on GitLab.
	Repository string
	// Number is the pull request number or the merge request IID.
	Number int
	Action string
}

func (t Target) String() string {
	return t.Provider + ":" + t.Repository + "#" + strconv.Itoa(t.Number)
}

// Adapter is a provider-specific implementation of identify, fetch and post.
type Adapter interface {
	Provider() string
	// EventHeader is the request header whose presence selects this adapter.
	EventHeader() string
	// Identify reports whether the delivery is a reviewable event.
	Identify(header http.Header, body []byte) (Target, bool)
	FetchDiff(ctx context.Context, target Target) (string, error)
	PostFeedback(ctx context.Context, target Target, feedback string) error
}

// DiffFetchError wraps a provider failure while retrieving a diff.
type DiffFetchError struct {
	Target Target
	Err    error
}

func (e *DiffFetchError) Error() string {
	return fmt.Sprintf("fetch diff %s: %v", e.Target, e.Err)
}

func (e *DiffFetchError) Unwrap() error { return e.Err }

// PostError wraps a provider failure while writing feedback.
type PostError struct {
	Target Target
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post feedback %s: %v", e.Target, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }
