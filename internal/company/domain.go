package company

import (
	"net/url"
	"strings"
)

// NormalizeDomain extracts the canonical host from a website URL: the
// host component, lower-cased, without a leading "www.". Inputs that are not
// absolute http(s) URLs return ok=false; malformed input is never an error.
func NormalizeDomain(raw string) (domain string, ok bool) {
	raw = strings.TrimSpace(raw)
	if !hasHTTPScheme(raw) {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// NormalizeDomainPtr is the nullable form of NormalizeDomain.
func NormalizeDomainPtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	d, ok := NormalizeDomain(*raw)
	if !ok {
		return nil
	}
	return &d
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
