// Package origin normalizes browser Origin headers and evaluates them
// against the configured allow-list.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// NormalizeHeader validates and normalizes a browser Origin header into
// scheme://host[:port] form: lower-cased scheme and host, no path, query,
// fragment, or userinfo, default ports stripped.
//
// The special Origin value "null" is allowed and returned as-is.
func NormalizeHeader(originHeader string) (string, bool) {
	trimmed := strings.TrimSpace(originHeader)
	if trimmed == "" {
		return "", false
	}
	if trimmed == "null" {
		return "null", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", false
	}

	var port uint64
	if rawPort := u.Port(); rawPort != "" {
		n, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		port = 0
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != 0 {
		host = host + ":" + strconv.FormatUint(port, 10)
	}
	return scheme + "://" + host, true
}

// IsAllowed reports whether a normalized origin matches the allow-list.
// An entry of "*" admits any origin; other entries must match exactly.
// An empty list denies everything.
func IsAllowed(normalizedOrigin string, allowed []string) bool {
	for _, entry := range allowed {
		if entry == "*" || entry == normalizedOrigin {
			return true
		}
	}
	return false
}

// RequestAllowed applies the allow-list to a raw Origin header. Requests
// without an Origin header (non-browser clients) are always admitted.
func RequestAllowed(originHeader string, allowed []string) bool {
	if strings.TrimSpace(originHeader) == "" {
		return true
	}
	normalized, ok := NormalizeHeader(originHeader)
	if !ok {
		return false
	}
	return IsAllowed(normalized, allowed)
}
