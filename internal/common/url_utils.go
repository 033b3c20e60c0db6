package common

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin returns the scheme://host[:port] component of a URL, identifying a
// distinct web application instance. Sessions must never cross origins.
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL missing scheme or host: %s", rawURL)
	}
	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), nil
}

// SameOrigin reports whether two URLs share scheme, host and port
func SameOrigin(a, b string) bool {
	originA, errA := Origin(a)
	originB, errB := Origin(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(originA, originB)
}

// NormalizeURL ensures a URL has a scheme, defaulting to https
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return "https://" + trimmed
	}
	return trimmed
}
