// Package validator decides which URLs a crawl may follow and reduces URLs
// to the canonical form used for visited-set membership.
package validator

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DisallowedExtensions are document and archive formats that are never crawled.
var DisallowedExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".zip", ".tar", ".gz"}

// Validator checks candidate URLs against an origin
type Validator struct {
	// AllowSubdomains widens containment from the exact host to every host
	// sharing the origin's registrable domain (eTLD+1).
	AllowSubdomains bool
}

// IsEligible reports whether candidate may be crawled from baseOrigin using
// exact-host containment.
func IsEligible(candidate, baseOrigin string) bool {
	return Validator{}.IsEligible(candidate, baseOrigin)
}

// IsEligible reports whether candidate may be crawled from baseOrigin.
// baseOrigin may be a bare host ("example.test") or a URL. It never panics
// and returns false for anything it cannot parse.
func (v Validator) IsEligible(candidate, baseOrigin string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
	default:
		return false
	}

	if u.Host != "" {
		if !v.sameOrigin(hostOf(u), originHost(baseOrigin)) {
			return false
		}
	}

	path := strings.ToLower(u.Path)
	for _, ext := range DisallowedExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

func (v Validator) sameOrigin(host, origin string) bool {
	if host == "" || origin == "" {
		return false
	}
	if host == origin {
		return true
	}
	if !v.AllowSubdomains {
		return false
	}

	hostDomain, err := publicsuffix.EffectiveTLDPlusOne(stripPort(host))
	if err != nil {
		return false
	}
	originDomain, err := publicsuffix.EffectiveTLDPlusOne(stripPort(origin))
	if err != nil {
		return false
	}
	return hostDomain == originDomain
}

// originHost extracts the comparable host from a bare host or URL.
func originHost(baseOrigin string) string {
	baseOrigin = strings.TrimSpace(baseOrigin)
	if baseOrigin == "" {
		return ""
	}
	if !strings.Contains(baseOrigin, "://") {
		baseOrigin = "http://" + baseOrigin
	}
	u, err := url.Parse(baseOrigin)
	if err != nil {
		return ""
	}
	return hostOf(u)
}

// hostOf lowercases the host and drops a default port for the scheme.
func hostOf(u *url.URL) string {
	host := strings.ToLower(u.Host)
	port := u.Port()
	switch {
	case port == "80" && (u.Scheme == "http" || u.Scheme == ""):
		host = strings.TrimSuffix(host, ":80")
	case port == "443" && (u.Scheme == "https" || u.Scheme == ""):
		host = strings.TrimSuffix(host, ":443")
	}
	return host
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// Canonicalize reduces rawURL to the form used as a visited-set key: scheme and
// host are lowercased, default ports and fragments are removed, and an empty
// path becomes "/". Trailing slashes on non-root paths are kept because
// "/a" and "/a/" may be different resources.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = hostOf(u)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// Host returns the comparable host of rawURL, or "" when it has none.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return hostOf(u)
}
