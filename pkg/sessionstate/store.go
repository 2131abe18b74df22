package sessionstate

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound indicates the requested key is not present for the session.
	ErrKeyNotFound = errors.New("sessionstate: key not found")

	// ErrEmptySessionID indicates an operation was attempted without a session identifier.
	ErrEmptySessionID = errors.New("sessionstate: empty session id")
)

// Store is the per-browser-session key/value contract used by the login flow
// and the logout bridge. Operations are synchronous: they return only after
// the underlying storage has acknowledged the read or write.
type Store interface {
	// Put stores a value under key for the given session, overwriting any
	// previous value.
	Put(ctx context.Context, sid, key, value string) error

	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, sid, key string) (string, error)

	// Has reports whether key is present for the session.
	Has(ctx context.Context, sid, key string) (bool, error)

	// Forget removes the given keys from the session. Missing keys are not
	// an error, which makes cleanup idempotent.
	Forget(ctx context.Context, sid string, keys ...string) error
}
