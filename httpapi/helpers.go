package httpapi

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/middleware"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/token"
)

// magicLinkValidity is how long an issued magic link may be redeemed.
const magicLinkValidity = 15 * time.Minute

// decodeHexPubKey decodes a hex-encoded 32-byte public key field.
func decodeHexPubKey(hexStr string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) != 32 {
		return out, apperr.Malformed("pub_key", "expected 32-byte hex-encoded public key")
	}
	copy(out[:], raw)
	return out, nil
}

func encodeHexPubKey(pub [32]byte) string {
	return hex.EncodeToString(pub[:])
}

// claimsFromContext recovers the access-token claims middleware.Wrap
// attached for protected requests.
func claimsFromContext(r *http.Request) (token.Claims, bool) {
	return middleware.ClaimsFromContext(r.Context())
}

// issueToken mints a single custom token carrying the given claim fields.
func issueToken(s *Server, userID identity.UserID, ed25519Pub, x25519Pub [32]byte, expiresAt, refreshExpiresAt time.Time, isRefresh bool) (string, error) {
	t := token.TypeAccess
	if isRefresh {
		t = token.TypeRefresh
	}
	claims := token.Claims{
		UserID:           userID,
		ExpiresAt:        uint32(expiresAt.Unix()),
		RefreshExpiresAt: uint32(refreshExpiresAt.Unix()),
		Ed25519Pub:       ed25519Pub,
		X25519Pub:        x25519Pub,
	}
	return token.Issue(s.cfg.Keys, claims, t)
}

// buildRefreshCookie wraps refresh.BuildCookie with the server's
// durations and the request's own host.
func buildRefreshCookie(s *Server, r *http.Request, value string) *http.Cookie {
	return refresh.BuildCookie(s.cfg.Durations, r.Host, value)
}

func expireRefreshCookie(r *http.Request) *http.Cookie {
	return refresh.ExpireCookie(r.Host)
}

// refreshCookieValue returns the last refresh_token cookie value on r,
// per spec §4.6 step 2's multiple-cookie resolution rule.
func refreshCookieValue(r *http.Request) (string, bool) {
	return refresh.LastCookieValue(r, refresh.CookieName)
}
