// Package clientip extracts the originating client address from an HTTP
// request, trusting common proxy headers before falling back to the socket
// address.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Header priority: CDN headers first, then the standard forwarded chain,
// then the reverse-proxy real-ip header.
var headers = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the client's IP address, or an empty string when nothing in
// the request parses as a valid address.
func GetIP(r *http.Request) string {
	for _, name := range headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a chain; the first valid entry is the
		// original client.
		for part := range strings.SplitSeq(value, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

func normalize(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}
