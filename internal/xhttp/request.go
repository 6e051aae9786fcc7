// Package xhttp holds small HTTP helpers shared by handlers and middleware.
package xhttp

import (
	"net"
	"net/http"
)

// GetRequestIP returns the client IP, preferring X-Forwarded-For when a
// proxy sits in front of the service.
func GetRequestIP(r *http.Request) string {
	if xff := r.Header.Get(XForwardedFor); xff != "" {
		if ip, _, err := net.SplitHostPort(xff); err == nil {
			return ip
		}
		return xff
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
