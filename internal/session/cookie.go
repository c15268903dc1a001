package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	CookieName = "__Host-session"
	hostPrefix = "__Host-"
)

// CookieOptions controls the session cookie. Zero values take the
// defaults applied by normalize.
type CookieOptions struct {
	Name     string
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string // must stay empty for __Host- names
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Name == "" {
		o.Name = CookieName
	}
	// browsers drop __Host- cookies that are not Secure
	if !o.Secure {
		o.Name = strings.TrimPrefix(o.Name, hostPrefix)
	}
	if o.Path == "" {
		o.Path = "/" // required for __Host-
	}
	// the handle is never readable from script
	o.HttpOnly = true
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// EffectiveName is the cookie name actually written for these options.
func (o CookieOptions) EffectiveName() string {
	return o.normalize().Name
}

// SetCookie hands the session handle to the browser until expiresAt.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, opts CookieOptions) {
	c := opts.cookie(sessionID)
	c.Expires = expiresAt
	http.SetCookie(w, c)
}

// ClearCookie tells the browser to drop the session handle.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	c := opts.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (o CookieOptions) cookie(value string) *http.Cookie {
	o = o.normalize()
	return &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		HttpOnly: o.HttpOnly,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// ReadCookie returns the session handle carried by r, or "".
func ReadCookie(r *http.Request, opts CookieOptions) string {
	c, err := r.Cookie(opts.EffectiveName())
	if err != nil {
		return ""
	}
	return c.Value
}
