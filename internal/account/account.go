// Package account holds the local user account model and its persistence
// contract. The bridge never owns the full user lifecycle; it only looks
// accounts up, links them to an external identity, and creates them when the
// host allows it.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Preference keys consumed and produced by the SSO flow. Values are strings
// because the host stores tri-state booleans as '0'/'1'/unset.
const (
	PrefExternalID    = "external_id"
	PrefApproved      = "account_approved"
	PrefEmailVerified = "email_verified"
	PrefLastActive    = "last_active"
	PrefAdminNotified = "sso_admin_notified"
)

var (
	// ErrNotFound indicates no account matched the lookup.
	ErrNotFound = errors.New("account: not found")

	// ErrExternalIDTaken indicates another account already holds the external
	// id link. The store enforces this with a uniqueness constraint so two
	// concurrent callbacks can never both create an account for one identity.
	ErrExternalIDTaken = errors.New("account: external id already linked")

	// ErrEmailTaken indicates another account already uses the email address.
	ErrEmailTaken = errors.New("account: email already in use")
)

// Account is a local user record.
type Account struct {
	ID           uuid.UUID
	UserName     string
	RealName     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Store is the persisted account contract the SSO core depends on.
type Store interface {
	Create(ctx context.Context, acc *Account) error
	ByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)

	// ByExternalID resolves an account through its external-id preference.
	// The external-id to account mapping is unique-valued.
	ByExternalID(ctx context.Context, externalID string) (*Account, error)

	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error

	// SetPref writes a preference, overwriting any previous value. Setting
	// PrefExternalID to a value held by another account fails with
	// ErrExternalIDTaken.
	SetPref(ctx context.Context, id uuid.UUID, key, value string) error

	// Pref reads a preference; unset preferences return "" without error.
	Pref(ctx context.Context, id uuid.UUID, key string) (string, error)

	// Delete removes an account. The resolver uses it only to roll back a
	// freshly created record whose external-id link lost a concurrent race.
	Delete(ctx context.Context, id uuid.UUID) error

	// Administrators returns all admin accounts for notification delivery.
	Administrators(ctx context.Context) ([]*Account, error)
}
