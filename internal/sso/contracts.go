package sso

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Session-record keys held for the duration of one login attempt. All three
// are removed on every callback exit path.
const (
	sessionKeyState     = "oauth2_state"
	sessionKeyPKCE      = "oauth2_pkce"
	sessionKeyInitiator = "sso_initiating_user"
)

// anonymousUser is the initiating-user sentinel recorded when an
// unauthenticated visitor starts the flow.
const anonymousUser = "anonymous"

// AuthContext is the host capability for the current identity and for
// establishing or tearing down the host session.
type AuthContext interface {
	// CurrentUserID returns the authenticated account id for the request,
	// or false when the request is anonymous.
	CurrentUserID(r *http.Request) (uuid.UUID, bool)

	// Login marks the host session as authenticated for the account.
	Login(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) error

	// Logout destroys the host session.
	Logout(w http.ResponseWriter, r *http.Request) error
}

// FlashLevel matches the host's notice styling.
type FlashLevel string

const (
	FlashDanger  FlashLevel = "danger"
	FlashWarning FlashLevel = "warning"
	FlashInfo    FlashLevel = "info"
)

// Flasher leaves a one-shot user-visible notice for the next page view.
type Flasher interface {
	Add(w http.ResponseWriter, level FlashLevel, message string)
}

// Messenger delivers an internal host message (the in-app inbox channel of
// administrator notifications).
type Messenger interface {
	DeliverMessage(ctx context.Context, from, to uuid.UUID, subject, body string) error
}

// AuditLog is the host's authentication/error audit trail. It is purely
// observational and never affects control flow.
type AuditLog interface {
	Authentication(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}
