package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys and file names.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// MatchesDomain reports whether domain is target or one of its subdomains.
// The match is on whole dot-separated labels, so "nottarget.org" does not
// match "target.org".
func MatchesDomain(domain, target string) bool {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	target = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(target)), ".")
	if domain == "" || target == "" {
		return false
	}
	return domain == target || strings.HasSuffix(domain, "."+target)
}
