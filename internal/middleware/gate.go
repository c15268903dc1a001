package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// Page classifies a route for the auth gate.
type Page int

const (
	// GuestOnly pages are for callers without a session (login, register,
	// federated start and callback).
	GuestOnly Page = iota
	// Protected pages need a live session.
	Protected
)

// Decision is the gate's outcome for one request.
type Decision int

const (
	Proceed Decision = iota
	DenyJSON
	RedirectToLogin
	RedirectToLanding
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case DenyJSON:
		return "deny_json"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToLanding:
		return "redirect_to_landing"
	default:
		return "unknown"
	}
}

// Decide maps session state, page class and caller style onto one of the
// four gate outcomes.
func Decide(authenticated bool, page Page, api bool) Decision {
	switch {
	case page == Protected && authenticated:
		return Proceed
	case page == Protected && api:
		return DenyJSON
	case page == Protected:
		return RedirectToLogin
	case authenticated:
		return RedirectToLanding
	default:
		return Proceed
	}
}

// IsAPIRequest reports whether r comes from a programmatic caller: the path
// is under /api/, or Accept asks for JSON and not HTML.
func IsAPIRequest(r *http.Request) bool {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return acceptsJSONOnly(r.Header.Values("Accept"))
}

func acceptsJSONOnly(values []string) bool {
	var json, html bool
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			switch mt {
			case "application/json":
				json = true
			case "text/html":
				html = true
			}
		}
	}
	return json && !html
}
