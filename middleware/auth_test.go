package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/token"
)

func testAuthKeys() config.Keys {
	var k config.Keys
	fill := func(b []byte, seed byte) {
		for i := range b {
			b[i] = seed + byte(i)
		}
	}
	fill(k.AccessCipherKey[:], 1)
	fill(k.AccessNonceKey[:], 2)
	fill(k.AccessHMACKey[:], 3)
	fill(k.RefreshCipherKey[:], 4)
	fill(k.RefreshNonceKey[:], 5)
	fill(k.RefreshHMACKey[:], 6)
	fill(k.PrehashCipherKey[:], 7)
	fill(k.PrehashNonceKey[:], 8)
	fill(k.PrehashHMACKey[:], 9)
	return k
}

func TestAuthenticate_BothBearerAndCookieRejected(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer whatever")
	r.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: "whatever"})

	_, _, err := Authenticate(a, r, time.Now())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindChannelViolation))
}

func TestAuthenticate_NoCredentialsRejected(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	_, _, err := Authenticate(a, r, time.Now())
	require.Error(t, err)
}

func TestAuthenticate_ValidBearerFreshToken(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)
	now := time.Now()

	claims := token.Claims{
		ExpiresAt:        uint32(now.Add(5 * time.Minute).Unix()),
		RefreshExpiresAt: uint32(now.Add(25 * time.Minute).Unix()),
	}
	accessTok, err := token.Issue(keys, claims, token.TypeAccess)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+accessTok)

	gotClaims, renewal, err := Authenticate(a, r, now)
	require.NoError(t, err)
	assert.Nil(t, renewal)
	assert.Equal(t, claims.ExpiresAt, gotClaims.ExpiresAt)
}

func TestAuthenticate_ProactiveRenewalInWindow(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)
	now := time.Now()

	// refresh_expires_at just 1 minute out: well inside the 2/3 (20min) window.
	claims := token.Claims{
		ExpiresAt:        uint32(now.Add(5 * time.Minute).Unix()),
		RefreshExpiresAt: uint32(now.Add(1 * time.Minute).Unix()),
	}
	accessTok, err := token.Issue(keys, claims, token.TypeAccess)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+accessTok)

	_, renewal, err := Authenticate(a, r, now)
	require.NoError(t, err)
	require.NotNil(t, renewal)
	assert.NotEmpty(t, renewal.AccessToken)
	assert.NotEmpty(t, renewal.RefreshToken)
	assert.NotNil(t, renewal.RefreshCookie)
}

func TestAuthenticate_SilentRefreshOnExpiredPOST(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)
	now := time.Now()

	expiredAccess := token.Claims{ExpiresAt: uint32(now.Add(-time.Minute).Unix()), RefreshExpiresAt: uint32(now.Add(20 * time.Minute).Unix())}
	accessTok, err := token.Issue(keys, expiredAccess, token.TypeAccess)
	require.NoError(t, err)

	refreshClaims := token.Claims{ExpiresAt: uint32(now.Add(20 * time.Minute).Unix())}
	refreshTok, err := token.Issue(keys, refreshClaims, token.TypeRefresh)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+accessTok)
	r.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: refreshTok})

	_, renewal, err := Authenticate(a, r, now)
	require.NoError(t, err)
	require.NotNil(t, renewal)
	assert.NotEmpty(t, renewal.AccessToken)
	assert.Empty(t, renewal.RefreshToken)
}

func TestAuthenticate_ExpiredOnGETNotSilentlyRefreshed(t *testing.T) {
	keys := testAuthKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	a := New(keys, durations)
	now := time.Now()

	expiredAccess := token.Claims{ExpiresAt: uint32(now.Add(-time.Minute).Unix())}
	accessTok, err := token.Issue(keys, expiredAccess, token.TypeAccess)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+accessTok)
	r.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: "irrelevant"})

	_, _, err = Authenticate(a, r, now)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindChannelViolation))
}

func TestIsPublicPath(t *testing.T) {
	assert.True(t, IsPublicPath("/version"))
	assert.True(t, IsPublicPath("/api/login/"))
	assert.True(t, IsPublicPath("/api/refresh"))
	assert.False(t, IsPublicPath("/api/shared-secret/create"))
}
