package connection

import (
	"fmt"
	"net/url"
	"strings"
)

const canonicalHost = "www.linkedin.com"

// NormalizeProfileURL rewrites regional LinkedIn hosts such as
// in.linkedin.com to www.linkedin.com. Any other absolute URL is returned
// unchanged.
func NormalizeProfileURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProfileURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidProfileURL, raw)
	}

	if !isRegionalHost(strings.ToLower(u.Hostname())) {
		return raw, nil
	}

	u.Host = canonicalHost
	return u.String(), nil
}

// isRegionalHost matches two-letter country subdomains of linkedin.com.
func isRegionalHost(host string) bool {
	sub, ok := strings.CutSuffix(host, ".linkedin.com")
	if !ok || len(sub) != 2 {
		return false
	}
	for _, r := range sub {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
