package api

import "strings"

// DefaultAllowedOrigins are the CORS and WebSocket origins used when none
// are configured. A single '*' matches any run of characters.
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginChecker matches request origins against a pattern list.
type OriginChecker struct {
	patterns []string
}

// NewOriginChecker creates a checker. An empty list falls back to
// DefaultAllowedOrigins.
func NewOriginChecker(patterns []string) *OriginChecker {
	if len(patterns) == 0 {
		patterns = DefaultAllowedOrigins
	}
	return &OriginChecker{patterns: patterns}
}

// Patterns returns the configured patterns for the CORS middleware.
func (oc *OriginChecker) Patterns() []string {
	return oc.patterns
}

// Allowed reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, p := range oc.patterns {
		if matchOrigin(p, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return pattern == origin
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}
