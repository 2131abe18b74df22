// Package pg establishes the PostgreSQL connection pool backing the account
// store and applies embedded schema migrations with goose.
package pg
