package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Environment is the IdP-side collaborator the logout bridge hands off to.
// The IdP mints its own nonce-bound logout URL; the bridge only asks for it
// and redirects.
type Environment interface {
	// LogoutURL returns an IdP-native logout URL that, once followed, sends
	// the browser on to redirectTo.
	LogoutURL(ctx context.Context, redirectTo string) (string, error)

	// HomeURL returns the IdP's canonical home page.
	HomeURL() string
}

// HTTPEnvironment implements Environment against a configured endpoint on the
// IdP that returns a JSON body {"logout_url": "..."}. A single injected URL
// replaces any filesystem discovery of the IdP installation.
type HTTPEnvironment struct {
	endpoint   string
	homeURL    string
	httpClient *http.Client
}

func NewHTTPEnvironment(endpoint, homeURL string) *HTTPEnvironment {
	return &HTTPEnvironment{
		endpoint:   endpoint,
		homeURL:    homeURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *HTTPEnvironment) HomeURL() string {
	return e.homeURL
}

// LogoutURL fetches the nonce-protected logout URL from the IdP. Some IdP
// configurations entity-encode ampersands in generated URLs, which breaks a
// Location header; those are normalized before validation.
func (e *HTTPEnvironment) LogoutURL(ctx context.Context, redirectTo string) (string, error) {
	if e.endpoint == "" {
		return "", fmt.Errorf("idp: logout endpoint not configured")
	}

	reqURL := e.endpoint + "?redirect_to=" + url.QueryEscape(redirectTo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("idp: build logout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("idp: fetch logout url: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("idp: logout endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		LogoutURL string `json:"logout_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("idp: decode logout response: %w", err)
	}

	logoutURL := NormalizeURL(body.LogoutURL)
	if _, err := url.ParseRequestURI(logoutURL); err != nil {
		return "", fmt.Errorf("idp: malformed logout url: %w", err)
	}
	return logoutURL, nil
}

// NormalizeURL undoes HTML-entity encoding of ampersands in a URL.
func NormalizeURL(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

var _ Environment = (*HTTPEnvironment)(nil)
