// Package middleware implements the auth middleware of spec §4.8:
// path classification, channel-separation enforcement, Bearer
// validation, silent refresh on an expired access token, and proactive
// 2/3-threshold renewal on otherwise-valid protected requests.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/token"
)

type claimsContextKey struct{}

// ClaimsFromContext recovers the access-token claims a protected handler
// was authenticated under.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return c, ok
}

func withClaims(ctx context.Context, c token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// IsPublicPath classifies a request path per spec §4.8. Everything not
// matched here is protected.
func IsPublicPath(path string) bool {
	if path == "/version" || path == "/refresh" || path == "/api/refresh" {
		return true
	}
	return strings.HasPrefix(path, "/login") || strings.HasPrefix(path, "/api/login")
}

// Auth carries the keys and durations the middleware validates tokens
// against and mints renewals from.
type Auth struct {
	keys      config.Keys
	durations config.Durations
}

func New(keys config.Keys, durations config.Durations) *Auth {
	return &Auth{keys: keys, durations: durations}
}

// Renewal describes tokens the middleware minted on the caller's behalf,
// to be spliced into the outbound response (spec §4.8 step 4).
type Renewal struct {
	AccessToken   string
	RefreshToken  string // non-empty only when the refresh cookie itself was reissued
	RefreshCookie *http.Cookie
}

// Authenticate implements spec §4.8 steps 1-4 for a single request.
func Authenticate(a *Auth, r *http.Request, now time.Time) (token.Claims, *Renewal, error) {
	bearer, hasBearer := extractBearer(r)
	_, hasCookie := refresh.LastCookieValue(r, refresh.CookieName)

	if hasBearer && hasCookie {
		return token.Claims{}, nil, apperr.ChannelViolation()
	}
	if !hasBearer {
		return token.Claims{}, nil, apperr.InvalidSignature()
	}

	claims, err := token.Validate(a.keys, bearer, token.TypeAccess, now)
	if err != nil {
		if apperr.Is(err, apperr.KindExpired) && r.Method != http.MethodGet {
			return a.silentRefresh(r, now)
		}
		return token.Claims{}, nil, err
	}

	if refresh.Decide(a.durations, claims.RefreshExpiresAt, now) == refresh.DecisionRotate {
		renewal, rerr := a.proactiveRenew(r, claims, now)
		if rerr != nil {
			// The caller already holds a valid access token; a renewal
			// failure here must not fail the request.
			return claims, nil, nil
		}
		return claims, renewal, nil
	}

	return claims, nil, nil
}

// silentRefresh implements spec §4.8 step 3: on an expired access token,
// re-derive a fresh one from the refresh cookie, reusing the session's
// existing Ed25519/X25519 keys (a silent refresh never rotates identity;
// only an explicit POST /refresh call can supply replacement keys).
func (a *Auth) silentRefresh(r *http.Request, now time.Time) (token.Claims, *Renewal, error) {
	cookieVal, ok := refresh.LastCookieValue(r, refresh.CookieName)
	if !ok {
		return token.Claims{}, nil, apperr.Expired("access token")
	}

	refreshClaims, err := token.Validate(a.keys, cookieVal, token.TypeRefresh, now)
	if err != nil {
		return token.Claims{}, nil, err
	}

	newAccessClaims := token.Claims{
		UserID:           refreshClaims.UserID,
		ExpiresAt:        uint32(now.Add(a.durations.AccessTokenDuration).Unix()),
		RefreshExpiresAt: refreshClaims.ExpiresAt,
		Ed25519Pub:       refreshClaims.Ed25519Pub,
		X25519Pub:        refreshClaims.X25519Pub,
	}
	accessToken, err := token.Issue(a.keys, newAccessClaims, token.TypeAccess)
	if err != nil {
		return token.Claims{}, nil, err
	}

	return newAccessClaims, &Renewal{AccessToken: accessToken}, nil
}

// proactiveRenew implements spec §4.8 step 4's non-rotation path: the
// 2/3 window was hit on an ordinary protected call, so fresh access and
// refresh tokens are minted reusing the session's current keys and
// attached to the response without a client round-trip to /refresh.
func (a *Auth) proactiveRenew(r *http.Request, claims token.Claims, now time.Time) (*Renewal, error) {
	newRefreshExpiresAt := uint32(now.Add(a.durations.RefreshTokenDuration).Unix())

	newAccessClaims := token.Claims{
		UserID:           claims.UserID,
		ExpiresAt:        uint32(now.Add(a.durations.AccessTokenDuration).Unix()),
		RefreshExpiresAt: newRefreshExpiresAt,
		Ed25519Pub:       claims.Ed25519Pub,
		X25519Pub:        claims.X25519Pub,
	}
	accessToken, err := token.Issue(a.keys, newAccessClaims, token.TypeAccess)
	if err != nil {
		return nil, err
	}

	newRefreshClaims := newAccessClaims
	newRefreshClaims.ExpiresAt = newRefreshExpiresAt
	refreshToken, err := token.Issue(a.keys, newRefreshClaims, token.TypeRefresh)
	if err != nil {
		return nil, err
	}

	return &Renewal{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		RefreshCookie: refresh.BuildCookie(a.durations, r.Host, refreshToken),
	}, nil
}

func extractBearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	v := strings.TrimPrefix(h, prefix)
	return v, v != ""
}

// Wrap adapts Authenticate into a standard net/http middleware for raw
// (non-signed-envelope) protected responses, attaching renewal headers
// and Set-Cookie per spec §4.8 step 4.
func (a *Auth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claims, renewal, err := Authenticate(a, r, time.Now())
		if err != nil {
			http.Error(w, err.Error(), apperr.StatusCode(err))
			return
		}

		if renewal != nil {
			w.Header().Set("x-new-access-token", renewal.AccessToken)
			w.Header().Set("x-token-expires-in", strconv.Itoa(int(a.durations.AccessTokenDuration.Seconds())))
			if renewal.RefreshCookie != nil {
				http.SetCookie(w, renewal.RefreshCookie)
			}
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}
