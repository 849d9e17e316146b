// Package siteid derives stable per-site identities from URLs. The identity
// keys all adaptive selector storage, so it must be deterministic and total:
// any input string, however malformed, resolves to a well-defined identity.
package siteid

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// unknownHost is the sentinel hashed for URLs without a usable host.
const unknownHost = "unknown"

// Resolve returns the site identity for a URL: the hex MD5 digest of its
// lowercased host. Scheme, path, query and fragment are ignored, so every
// URL on the same host maps to the same identity. The digest is a stable
// fingerprint used only as a store key, not a security boundary.
func Resolve(rawURL string) string {
	return hash(hostOf(rawURL))
}

// hostOf extracts the normalized host (including port) from a URL, falling
// back to the unknown sentinel when nothing usable can be parsed.
func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		// Bare "example.com/path" inputs have no scheme; retry with one
		// so the host still resolves rather than degrading to unknown.
		u, err = url.Parse("http://" + strings.TrimSpace(rawURL))
		if err != nil || u.Host == "" {
			return unknownHost
		}
	}
	return strings.ToLower(u.Host)
}

func hash(host string) string {
	sum := md5.Sum([]byte(host))
	return hex.EncodeToString(sum[:])
}
