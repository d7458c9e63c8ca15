// Package github provides factory functions for creating authenticated GitHub
// API clients. Callers wrap the returned *github.Client with the adapter in
// apps/proxy/internal/repos/upstream.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://api.github.com"

// NewTokenClient creates a *github.Client authenticated with a bearer token.
// Pass baseURL="" to use the real GitHub API, or a custom URL
// (e.g. "http://localhost:9090") for a mock server.
func NewTokenClient(token, baseURL string) *gogithub.Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	c := gogithub.NewClient(httpClient)
	applyBaseURL(c, baseURL)
	return c
}

// AppInstallation mints installation access tokens for a GitHub App. The
// underlying transport caches a token until shortly before it expires.
type AppInstallation struct {
	tr *ghinstallation.Transport
}

// NewAppInstallation loads the app's PEM private key from privateKeyPath.
func NewAppInstallation(appID, installationID int64, privateKeyPath, baseURL string) (*AppInstallation, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("github app auth: %w", err)
	}
	if baseURL != "" {
		tr.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &AppInstallation{tr: tr}, nil
}

// Token returns a valid installation token, refreshing it when needed.
func (a *AppInstallation) Token(ctx context.Context) (string, error) {
	tok, err := a.tr.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("installation token: %w", err)
	}
	return tok, nil
}

func applyBaseURL(c *gogithub.Client, baseURL string) {
	if baseURL == "" || baseURL == defaultAPIURL {
		return
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return
	}
	c.BaseURL = u
}
