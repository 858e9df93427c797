package gate

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultLoginPath is the unauthenticated entry point.
	DefaultLoginPath = "/login"
	// DefaultHomePath is where a login lands without a usable "from".
	DefaultHomePath = "/dashboard"
)

// LoginURL returns loginPath carrying the originally requested location in "from".
func LoginURL(loginPath string, r *http.Request) string {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	from := ""
	if r != nil && r.URL != nil {
		from = r.URL.RequestURI()
	}
	if from == "" || from == "/" {
		return loginPath
	}
	return loginPath + "?from=" + url.QueryEscape(from)
}

// ReturnPath returns from when it is a local console path, else DefaultHomePath.
// Absolute URLs, scheme-relative paths and the login page itself are rejected.
func ReturnPath(from string) string {
	from = strings.TrimSpace(from)
	if from == "" || !strings.HasPrefix(from, "/") {
		return DefaultHomePath
	}
	if strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return DefaultHomePath
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultHomePath
	}
	if u.Path == DefaultLoginPath || u.Path == "/" {
		return DefaultHomePath
	}
	return from
}

// WantsJSON reports whether the caller expects a JSON response rather than a page.
func WantsJSON(r *http.Request) bool {
	if r == nil {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/html") {
		return false
	}
	if strings.Contains(accept, "application/json") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}
