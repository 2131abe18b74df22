// Package cookie provides HMAC-signed cookies and one-shot flash messages.
//
// Signed cookies carry the browser session identifier and the demo host
// session; flash cookies carry the user-visible notices the login flow leaves
// behind on every terminal redirect. Flash cookies are deleted as soon as
// they are read.
package cookie
