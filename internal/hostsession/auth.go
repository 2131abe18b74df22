package hostsession

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/ssobridge/pkg/cookie"
)

const (
	authCookieName = "host_session"
	authCookieTTL  = 7 * 24 * 3600
)

// CookieAuth keeps the authenticated account id in a signed cookie. It
// implements the AuthContext capability the login flow depends on.
type CookieAuth struct {
	cookies *cookie.Manager
}

func NewCookieAuth(cookies *cookie.Manager) *CookieAuth {
	return &CookieAuth{cookies: cookies}
}

func (a *CookieAuth) CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	value, err := a.cookies.GetSigned(r, authCookieName)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (a *CookieAuth) Login(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) error {
	a.cookies.SetSigned(w, authCookieName, accountID.String(), authCookieTTL)
	return nil
}

func (a *CookieAuth) Logout(w http.ResponseWriter, r *http.Request) error {
	a.cookies.Delete(w, authCookieName)
	return nil
}
