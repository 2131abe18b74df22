// Package hostsession provides the host-application side of the bridge
// contracts: a signed-cookie session (AuthContext), one-shot flash notices
// (Flasher), a slog-backed audit trail, and a Postgres-backed internal
// message inbox (Messenger). A real host would swap these for its own
// implementations; the bridge only sees the interfaces.
package hostsession
