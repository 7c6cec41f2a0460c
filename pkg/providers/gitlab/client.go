package gitlab

import (
	"net/http"
	"strings"

	"reviewhooks/pkg/auth"

	gl "github.com/xanzy/go-gitlab"
)

const defaultBaseURL = "https://gitlab.com/api/v4"

// Client is the GitLab SDK client.
type Client = gl.Client

// NewTokenClient returns a GitLab SDK client using a private or project token.
// The SDK's automatic retries are disabled; a failed call surfaces at once.
func NewTokenClient(cfg auth.ProviderConfig) (*Client, error) {
	return gl.NewClient(cfg.Token,
		gl.WithBaseURL(normalizeBaseURL(cfg.BaseURL)),
		gl.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		gl.WithCustomRetryMax(0),
	)
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(base, "/")
}
