package sso

import (
	"time"
)

// Config carries the SSO feature settings. The five OAuth endpoint settings
// are intentionally not tagged required: their absence is a per-request
// Configuration error with a user-facing notice, not a startup crash, so an
// operator who half-configures the module sees a working site with a clear
// message instead of a dead process.
type Config struct {
	Enabled       bool   `env:"SSO_ENABLED" envDefault:"false"`
	AllowCreation bool   `env:"SSO_ALLOW_CREATION" envDefault:"false"`
	SyncEmail     bool   `env:"SSO_SYNC_EMAIL" envDefault:"false"`
	Debug         bool   `env:"SSO_DEBUG" envDefault:"false"`
	HomeURL       string `env:"SSO_HOME_URL" envDefault:"/"`

	ClientID         string `env:"SSO_CLIENT_ID"`
	ClientSecret     string `env:"SSO_CLIENT_SECRET"`
	AuthorizeURL     string `env:"SSO_URL_AUTHORIZE"`
	TokenURL         string `env:"SSO_URL_ACCESS_TOKEN"`
	ResourceOwnerURL string `env:"SSO_URL_RESOURCE_OWNER"`
	RedirectURL      string `env:"SSO_REDIRECT_URL"`
	PKCEMethod       string `env:"SSO_PKCE_METHOD"`

	IdPLogoutEndpoint string        `env:"SSO_IDP_LOGOUT_ENDPOINT"`
	IdPHomeURL        string        `env:"SSO_IDP_HOME_URL"`
	LogoutTokenTTL    time.Duration `env:"SSO_LOGOUT_TOKEN_TTL" envDefault:"60s"`
}

// Validate checks required OAuth settings and returns a Configuration flow
// error naming the first missing one. The flow runs this before either phase
// so nothing downstream sees a half-configured provider.
func (c Config) Validate() *FlowError {
	required := []struct{ name, value string }{
		{"client id", c.ClientID},
		{"client secret", c.ClientSecret},
		{"authorization URL", c.AuthorizeURL},
		{"access token URL", c.TokenURL},
		{"resource owner URL", c.ResourceOwnerURL},
	}
	for _, field := range required {
		if field.value == "" {
			return flowErrf(KindConfiguration, "missing configuration: %s", field.name)
		}
	}
	return nil
}
