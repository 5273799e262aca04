// Package requestid generates and resolves per-request correlation ids.
package requestid

import (
	crand "crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const DefaultHeaderKey = "X-Relay-Request-Id"

// ResolveHeaderKey returns the provided header key when non-empty, otherwise
// the default.
func ResolveHeaderKey(headerKey string) string {
	if v := strings.TrimSpace(headerKey); v != "" {
		return v
	}
	return DefaultHeaderKey
}

// Gen returns a new request id: a UTC timestamp plus a random hex suffix.
func Gen() string {
	var b [4]byte
	_, _ = crand.Read(b[:])
	return time.Now().UTC().Format("20060102T150405") + "-" + hex.EncodeToString(b[:])
}
