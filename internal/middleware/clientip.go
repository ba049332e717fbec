package middleware

import (
	"net"
	"strings"
)

// clientIP extracts the client IP of a request, considering proxies.
// header looks up a request header and remoteAddr is the peer address.
func clientIP(header func(name string) string, remoteAddr string) string {
	// X-Forwarded-For may contain multiple IPs, the first is the original client
	if xff := header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := header("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return ip
}
