// Package gate decides, per request, whether traffic reaches the site or the
// coming-soon placeholder. Classification is pure; Middleware applies it.
package gate

import (
	"net/http"
	"regexp"
	"strings"
)

// Decision tags, also sent in the HeaderDecision response header
const (
	DecisionBypassAssets     = "bypass-assets"
	DecisionAllowPlaceholder = "allow-coming-soon"
	DecisionDevAllow         = "dev-allow"
	DecisionComingSoon       = "prod-coming-soon"
)

const (
	HeaderDecision = "X-Vantera-Gate"
	HeaderHost     = "X-Vantera-Host"

	DefaultPlaceholder = "/coming-soon"
	unknownHost        = "unknown"
)

var (
	extensionRegex = regexp.MustCompile(`\.[A-Za-z0-9]+$`)
	portRegex      = regexp.MustCompile(`:\d+$`)

	assetFiles    = map[string]bool{"/favicon.ico": true, "/robots.txt": true, "/sitemap.xml": true}
	assetPrefixes = []string{"/og/", "/brand/", "/brands/", "/hero/"}
)

type Result struct {
	Decision string
	Host     string
	// Path is the path the request should be served from
	Path string
}

// Rewritten reports whether the served path differs from the requested one.
func (r Result) Rewritten() bool {
	return r.Decision == DecisionComingSoon
}

type Gate struct {
	devHosts    map[string]bool
	placeholder string
}

func New(devHosts []string, placeholder string) *Gate {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	hosts := make(map[string]bool, len(devHosts))
	for _, h := range devHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return &Gate{devHosts: hosts, placeholder: placeholder}
}

// ResolveHost prefers the forwarded host, keeps the first proxy hop, lower-cases
// and strips the port.
func ResolveHost(forwardedHost, host string) string {
	raw := forwardedHost
	if raw == "" {
		raw = host
	}
	raw = strings.ToLower(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	raw = portRegex.ReplaceAllString(raw, "")
	if raw == "" {
		return unknownHost
	}
	return raw
}

// IsPublicAsset matches framework assets, well-known root files, brand image
// folders and anything whose path ends in a file extension.
func IsPublicAsset(path string) bool {
	if strings.HasPrefix(path, "/_next") || assetFiles[path] {
		return true
	}
	for _, prefix := range assetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return extensionRegex.MatchString(path)
}

// Classify evaluates the rules in order; the first match wins.
func (g *Gate) Classify(forwardedHost, host, path string) Result {
	h := ResolveHost(forwardedHost, host)
	res := Result{Host: h, Path: path}

	switch {
	case IsPublicAsset(path) || strings.HasPrefix(path, "/api"):
		res.Decision = DecisionBypassAssets
	case path == g.placeholder:
		res.Decision = DecisionAllowPlaceholder
	case g.devHosts[h]:
		res.Decision = DecisionDevAllow
	default:
		res.Decision = DecisionComingSoon
		res.Path = g.placeholder
	}
	return res
}

// Middleware tags every response and serves the placeholder in place of gated
// paths. The client URL is untouched; there is no redirect.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Classify(r.Header.Get("X-Forwarded-Host"), r.Host, r.URL.Path)

		w.Header().Set(HeaderDecision, res.Decision)
		w.Header().Set(HeaderHost, res.Host)

		if res.Rewritten() {
			r2 := r.Clone(r.Context())
			r2.URL.Path = res.Path
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
			return
		}
		next.ServeHTTP(w, r)
	})
}
