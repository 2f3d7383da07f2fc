package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders are consulted in order before RemoteAddr.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// FromRequest returns the client address of r using DefaultHeaders.
func FromRequest(r *http.Request) string {
	return FromHeaders(r, DefaultHeaders...)
}

// FromHeaders returns the first valid address found in headers, in order,
// falling back to RemoteAddr. For X-Forwarded-For the leftmost valid entry
// wins. Only trust headers the proxy in front of the gateway overwrites.
func FromHeaders(r *http.Request, headers ...string) string {
	for _, name := range headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := normalize(candidate); ip != "" {
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

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
