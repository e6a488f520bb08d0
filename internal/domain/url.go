package domain

import (
	"net/url"
	"strings"
)

// SanitizeHTTPURL accepts only absolute http/https URLs with a host and
// returns the trimmed URL, or "" if the input does not qualify.
func SanitizeHTTPURL(raw string) string {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return s
}
