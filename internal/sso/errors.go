package sso

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal flow error. The callback pipeline returns a
// tagged error from each stage and the handler matches on the kind to pick
// the user-facing message, the log severity, and the cleanup action.
type Kind string

const (
	KindCookiesRejected Kind = "cookies_rejected"
	KindConfiguration   Kind = "configuration"
	KindSecurity        Kind = "security"
	KindStateValidation Kind = "state_validation"
	KindTokenExchange   Kind = "token_exchange"
	KindUserData        Kind = "user_data"
	KindUserCreation    Kind = "user_creation"
	KindLogin           Kind = "login"
	KindUnexpected      Kind = "unexpected"
)

// SecuritySensitive reports whether errors of this kind should be logged as
// potential attack signals (monitored separately from operational failures).
func (k Kind) SecuritySensitive() bool {
	return k == KindSecurity || k == KindStateValidation
}

// userMessages are the non-leaking flash messages per kind. The creation and
// login kinds carry their message on the error itself.
var userMessages = map[Kind]string{
	KindCookiesRejected: "You cannot sign in because your browser does not accept cookies.",
	KindConfiguration:   "Single sign-on is not configured correctly. Please contact the administrator.",
	KindSecurity:        "Security violation: the login was initiated by a different user. Please try again.",
	KindStateValidation: "Security validation failed. This may be a CSRF attempt. Please try again.",
	KindTokenExchange:   "Failed to communicate with the identity provider. Please try again.",
	KindUserData:        "The identity provider did not supply valid user information. Please contact the administrator.",
	KindUnexpected:      "An unexpected error occurred. Please contact the administrator.",
}

// FlowError is a classified terminal error of the login flow.
type FlowError struct {
	Kind    Kind
	Message string // user-visible override; empty means the kind default
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *FlowError) Unwrap() error { return e.Err }

// UserMessage returns the flash message shown to the user. Detail from the
// wrapped error never leaks unless the stage set it explicitly.
func (e *FlowError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[KindUnexpected]
}

func flowErr(kind Kind, err error) *FlowError {
	return &FlowError{Kind: kind, Err: err}
}

func flowErrf(kind Kind, format string, args ...any) *FlowError {
	return &FlowError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// classify wraps an arbitrary error into a FlowError, passing through errors
// that already carry a kind.
func classify(err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}
	return flowErr(KindUnexpected, err)
}

// ErrCreationDisabled is returned by the resolver when no account matched and
// automatic creation is turned off.
var ErrCreationDisabled = errors.New("user not found and automatic account creation is disabled")
