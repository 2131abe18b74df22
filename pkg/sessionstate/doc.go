// Package sessionstate provides a narrow per-browser key/value store whose
// entries live for the duration of one login attempt.
//
// The login flow keeps exactly three keys per session: the CSRF state, the
// PKCE verifier, and the initiating-user marker. Values are always freshly
// overwritten by a retried flow, never appended, and the flow removes all of
// them on every callback exit path. The same contract, under a separate
// namespace, backs the one-time logout token because it must outlive the host
// application's own session teardown.
//
// Two implementations are provided: MemoryStore for tests and single-node
// development, and RedisStore for production.
package sessionstate
