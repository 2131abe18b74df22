// Package idp contains the OAuth2 client collaborator the login flow talks
// to. The flow treats it as a black box: it builds the authorization URL
// (minting CSRF state and, when enabled, a PKCE verifier), exchanges the
// authorization code for an access token, and fetches the resource-owner
// profile.
package idp

import (
	"context"
	"errors"
)

var (
	// ErrExchangeFailed indicates the IdP rejected the code-for-token
	// exchange (invalid/expired code, redirect-URI mismatch).
	ErrExchangeFailed = errors.New("idp: token exchange failed")

	// ErrResourceOwnerFetch indicates the resource-owner profile could not
	// be retrieved or parsed.
	ErrResourceOwnerFetch = errors.New("idp: resource owner fetch failed")
)

// Claims are the identity claims the bridge needs from one callback. All
// three fields must be non-empty before any account action is taken; the
// flow enforces that, not the provider.
type Claims struct {
	ExternalID string
	Email      string
	Username   string
}

// Provider is the narrow contract between the login flow and the IdP.
type Provider interface {
	// AuthorizationURL builds the provider authorization URL. It mints a
	// fresh CSRF state on every call and, when PKCE is enabled, a fresh
	// verifier; verifier is empty when PKCE is disabled.
	AuthorizationURL() (url, state, verifier string, err error)

	// Exchange trades the authorization code for an access token. The
	// verifier stored at authorization time must be supplied back when PKCE
	// was used; pass "" otherwise.
	Exchange(ctx context.Context, code, verifier string) (accessToken string, err error)

	// ResourceOwner fetches the authenticated user's profile.
	ResourceOwner(ctx context.Context, accessToken string) (Claims, error)
}
