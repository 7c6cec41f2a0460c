package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"reviewhooks/pkg/auth"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.github.com/"

// Client is the official GitHub SDK client.
type Client = gh.Client

// NewTokenClient creates a GitHub SDK client authenticated with a personal or
// installation token. Without a token the client is anonymous.
func NewTokenClient(ctx context.Context, cfg auth.ProviderConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)
		httpClient.Timeout = cfg.Timeout
	}

	client := gh.NewClient(httpClient)
	if base := normalizeBaseURL(cfg.BaseURL); base != defaultBaseURL {
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, err
		}
		client.BaseURL = parsed
	}
	return client, nil
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/"
}
