package idp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssobridge/internal/idp"
)

func testConfig(pkceMethod string, tokenURL, ownerURL string) idp.WordPressConfig {
	return idp.WordPressConfig{
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		AuthorizeURL:     "https://wp.example.com/oauth/authorize",
		TokenURL:         tokenURL,
		ResourceOwnerURL: ownerURL,
		RedirectURL:      "https://host.example.com/sso/login",
		PKCEMethod:       pkceMethod,
	}
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	t.Run("without PKCE", func(t *testing.T) {
		t.Parallel()

		p := idp.NewWordPressProvider(testConfig("", "https://wp.example.com/oauth/token", "https://wp.example.com/oauth/me"))

		authURL, state, verifier, err := p.AuthorizationURL()
		require.NoError(t, err)
		assert.Empty(t, verifier)
		assert.NotEmpty(t, state)

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.Equal(t, "https://wp.example.com/oauth/authorize", u.Scheme+"://"+u.Host+u.Path)
		q := u.Query()
		assert.Equal(t, state, q.Get("state"))
		assert.Equal(t, "client-id", q.Get("client_id"))
		assert.Empty(t, q.Get("code_challenge"))
	})

	t.Run("with PKCE", func(t *testing.T) {
		t.Parallel()

		p := idp.NewWordPressProvider(testConfig("S256", "https://wp.example.com/oauth/token", "https://wp.example.com/oauth/me"))

		authURL, _, verifier, err := p.AuthorizationURL()
		require.NoError(t, err)
		assert.NotEmpty(t, verifier)

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.NotEmpty(t, u.Query().Get("code_challenge"))
		assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	})

	t.Run("none disables PKCE", func(t *testing.T) {
		t.Parallel()

		p := idp.NewWordPressProvider(testConfig("none", "https://wp.example.com/oauth/token", "https://wp.example.com/oauth/me"))

		_, _, verifier, err := p.AuthorizationURL()
		require.NoError(t, err)
		assert.Empty(t, verifier)
	})

	t.Run("state is fresh per call", func(t *testing.T) {
		t.Parallel()

		p := idp.NewWordPressProvider(testConfig("", "https://wp.example.com/oauth/token", "https://wp.example.com/oauth/me"))

		_, first, _, err := p.AuthorizationURL()
		require.NoError(t, err)
		_, second, _, err := p.AuthorizationURL()
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestExchange(t *testing.T) {
	t.Parallel()

	t.Run("successful exchange forwards verifier", func(t *testing.T) {
		t.Parallel()

		var gotVerifier string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotVerifier = r.Form.Get("code_verifier")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"token-123","token_type":"bearer"}`))
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("S256", srv.URL, srv.URL))

		token, err := p.Exchange(context.Background(), "auth-code", "the-verifier")
		require.NoError(t, err)
		assert.Equal(t, "token-123", token)
		assert.Equal(t, "the-verifier", gotVerifier)
	})

	t.Run("provider rejection maps to ErrExchangeFailed", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("", srv.URL, srv.URL))

		_, err := p.Exchange(context.Background(), "expired-code", "")
		assert.ErrorIs(t, err, idp.ErrExchangeFailed)
	})
}

func TestResourceOwner(t *testing.T) {
	t.Parallel()

	t.Run("decodes wordpress profile", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ID":77,"user_login":"alice","user_email":"a@x.com"}`))
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("", srv.URL, srv.URL))

		claims, err := p.ResourceOwner(context.Background(), "token-123")
		require.NoError(t, err)
		assert.Equal(t, "77", claims.ExternalID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.Equal(t, "alice", claims.Username)
	})

	t.Run("non-200 maps to ErrResourceOwnerFetch", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("", srv.URL, srv.URL))

		_, err := p.ResourceOwner(context.Background(), "bad-token")
		assert.ErrorIs(t, err, idp.ErrResourceOwnerFetch)
	})

	t.Run("malformed body maps to ErrResourceOwnerFetch", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("", srv.URL, srv.URL))

		_, err := p.ResourceOwner(context.Background(), "token")
		assert.ErrorIs(t, err, idp.ErrResourceOwnerFetch)
	})

	t.Run("missing fields decode as empty claims", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_login":"alice"}`))
		}))
		t.Cleanup(srv.Close)

		p := idp.NewWordPressProvider(testConfig("", srv.URL, srv.URL))

		claims, err := p.ResourceOwner(context.Background(), "token")
		require.NoError(t, err)
		assert.Empty(t, claims.ExternalID)
		assert.Empty(t, claims.Email)
	})
}
