// Package email defines the outbound email contract used for administrator
// notifications, with a Postmark-backed sender for production and a
// log-only sender for development.
package email
