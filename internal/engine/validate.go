package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxContentChars caps stored memory text (~500 tokens).
const maxContentChars = 2000

// validDomainChar returns true if the character is allowed in a domain name.
// Allowed: lowercase alphanumeric, hyphens, underscores.
func validDomainChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// sanitizeDomain normalizes a domain to [a-z0-9_-].
// Uppercase becomes lowercase, spaces/dots/slashes become hyphens, other chars are dropped.
// Returns empty string if nothing survives.
func sanitizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}

	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(domain) {
		if validDomainChar(r) {
			b.WriteRune(r)
			prevHyphen = (r == '-')
		} else if r == ' ' || r == '.' || r == '/' {
			// Collapse separators to single hyphen
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-_")
}

// truncateClean truncates a string to at most maxLen bytes, cutting at the last
// word boundary to avoid mid-word breaks. It never splits a rune.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}

	// Back up to last space
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
