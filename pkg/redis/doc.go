// Package redis establishes the Redis connection used by the session-state
// and logout-token stores, with retry on startup.
package redis
