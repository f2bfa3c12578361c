package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only absolute https URLs whose host is allowed.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("ai base url: %w", err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("ai base url %q: absolute URL with host is required", baseURL)
	case u.User != nil:
		return fmt.Errorf("ai base url %q: userinfo is not allowed", baseURL)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("ai base url %q: query and fragment are not allowed", baseURL)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("ai base url %q: https is required", baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := allowedHostSet(allowedHosts)[host]; !ok {
		return fmt.Errorf("ai base url %q: host %q is not in the allowed hosts", baseURL, host)
	}
	return nil
}

func allowedHostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
