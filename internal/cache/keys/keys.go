// Package keys builds cache slot names.
package keys

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// LayerSlot scopes the last-known layer slot to one backend URL.
// The readable host part is informational; the hash is what separates slots.
func LayerSlot(prefix, backendURL string) string {
	norm := normalizeURL(backendURL)
	if norm == "" {
		return prefix
	}
	host := norm
	if u, err := url.Parse(norm); err == nil && u.Host != "" {
		host = u.Host
	}

	const maxHostLen = 64
	safe := sanitizeForKey(host)
	if len(safe) > maxHostLen {
		safe = safe[:maxHostLen]
	}
	return fmt.Sprintf("%s:%s:b=%016x", prefix, safe, xxhash.Sum64String(norm))
}

func normalizeURL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	return strings.ToLower(s)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '.' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
