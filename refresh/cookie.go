package refresh

import (
	"net/http"

	"github.com/arkaitz-dev/hashrand/config"
)

const CookieName = "refresh_token"

// BuildCookie implements spec §6's cookie contract: HttpOnly, Secure,
// SameSite=Strict, Max-Age derived from the refresh duration, Domain
// derived from the request's Host header.
func BuildCookie(durations config.Durations, host, tokenValue string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    tokenValue,
		Path:     "/",
		Domain:   host,
		MaxAge:   int(durations.RefreshTokenDuration.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpireCookie builds the Max-Age=0 cookie logout and dual-expiry
// responses emit.
func ExpireCookie(host string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   host,
		MaxAge:   0,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// LastCookieValue returns the value of the last occurrence of name among
// r's cookies, per spec §4.6 step 2: "if multiple cookies share that
// name ... use the last occurrence."
func LastCookieValue(r *http.Request, name string) (string, bool) {
	var last string
	found := false
	for _, c := range r.Cookies() {
		if c.Name == name {
			last = c.Value
			found = true
		}
	}
	return last, found
}
