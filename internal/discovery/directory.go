package discovery

import (
	"net/url"
	"strings"
)

// isDirectoryURL checks if a URL's hostname matches any entry in the blocklist.
// Listing and social sites are not a company's own website.
func isDirectoryURL(website string, blocklist []string) bool {
	u, err := url.Parse(website)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return false
	}

	for _, blocked := range blocklist {
		blocked = strings.ToLower(strings.TrimSpace(blocked))
		if blocked == "" {
			continue
		}
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}
