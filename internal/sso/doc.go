// Package sso implements the login/callback state machine, the account
// resolver, the administrator notification, and the two-phase logout bridge.
//
// The login handler serves one route in two phases: without a "code" query
// parameter it initiates the authorization redirect to the IdP; with one it
// runs the callback pipeline (user-switch detection, CSRF state validation,
// PKCE hydration, token exchange, profile validation, account resolution,
// email sync, session establishment). Every exit of the callback phase,
// success or failure, clears the per-attempt session state and ends in a
// redirect with a flash notice.
package sso
