package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

// IPKey buckets requests by client IP. It is the default KeyFunc.
func IPKey(req Request, _ ResponseSink) string {
	return req.IP()
}

// HeaderKey buckets requests by the value of a request header such as an
// API key, falling back to the client IP when the header is missing.
func HeaderKey(name string) KeyFunc {
	return func(req Request, res ResponseSink) string {
		if v := req.Header(name); v != "" {
			return name + ":" + v
		}

		return IPKey(req, res)
	}
}

// FingerprintKey buckets requests by a hash of client IP and User-Agent.
func FingerprintKey(req Request, _ ResponseSink) string {
	hash := sha256.Sum256([]byte(req.IP() + "|" + req.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}
