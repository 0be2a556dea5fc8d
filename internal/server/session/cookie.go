package session

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// CookieOptions defines how recovery cookies are issued.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetRecoveryCookies issues the username and session_token cookies with the
// same expiry. Both are HttpOnly.
func SetRecoveryCookies(w http.ResponseWriter, username, token string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()
	maxAge := int(time.Until(expiresAt).Seconds())

	for _, c := range [][2]string{
		{common.UsernameCookieName, username},
		{common.SessionTokenCookieName, token},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c[0],
			Value:    c[1],
			Path:     opts.Path,
			Domain:   opts.Domain,
			Expires:  expiresAt,
			MaxAge:   maxAge,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: opts.SameSite,
		})
	}
}

// ClearRecoveryCookies removes both recovery cookies from the client.
func ClearRecoveryCookies(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	for _, name := range []string{common.UsernameCookieName, common.SessionTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: opts.SameSite,
		})
	}
}

// RecoveryCookies reads both recovery cookies; ok is false unless both are
// present and non-empty.
func RecoveryCookies(r *http.Request) (username, token string, ok bool) {
	u, err := r.Cookie(common.UsernameCookieName)
	if err != nil || u.Value == "" {
		return "", "", false
	}
	t, err := r.Cookie(common.SessionTokenCookieName)
	if err != nil || t.Value == "" {
		return "", "", false
	}
	return u.Value, t.Value, true
}
