// Package logger builds configured slog.Logger instances for the bridge.
//
// It provides a small factory with format/level options, attribute helpers
// for common keys, and a masking handler that truncates credential-like
// attribute values (authorization codes, tokens, secrets) before they reach
// any output.
package logger
