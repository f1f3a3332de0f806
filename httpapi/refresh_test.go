package httpapi

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/token"
)

// TestRefresh_ReuseBelowThreshold covers the not-yet-due-for-rotation
// branch of spec §4.6: plenty of remaining refresh lifetime, so only a
// fresh access token is minted and no new cookie is set.
func TestRefresh_ReuseBelowThreshold(t *testing.T) {
	server, _, cfg := newTestServer(false)
	handler := server.Routes()

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var clientEd, clientX [32]byte
	copy(clientEd[:], clientPub)

	userID := identity.Derive(cfg.Keys, "refresh-reuse@example.com")
	now := time.Now()
	oldClaims := token.Claims{
		UserID:           userID,
		ExpiresAt:        uint32(now.Add(25 * time.Minute).Unix()), // above 20m (2/3 of 30m) threshold
		RefreshExpiresAt: uint32(now.Add(25 * time.Minute).Unix()),
		Ed25519Pub:       clientEd,
		X25519Pub:        clientX,
	}
	refreshToken, err := token.Issue(cfg.Keys, oldClaims, token.TypeRefresh)
	require.NoError(t, err)

	_, newEdHex := randomHexPub(t)
	_, newXHex := randomHexPub(t)

	body, err := signedBody(clientPriv, refreshRequest{NewEd25519PubKey: newEdHex, NewX25519PubKey: newXHex})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
	req.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: refreshToken})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp refreshResponse
	decodeEnvelopeBody(t, w, sessionPub(t, cfg, userID, clientEd), &resp)
	assert.Empty(t, resp.ServerPubKey)

	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, refresh.CookieName, c.Name, "reuse must not reissue the refresh cookie")
	}

	claims, err := token.Validate(cfg.Keys, resp.AccessToken, token.TypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, clientEd, claims.Ed25519Pub, "reuse keeps the session's existing key")
}

// TestRefresh_RotateWithinWindow covers spec §4.6's 2/3-threshold
// rotation: a new key pair is pinned and a fresh refresh cookie issued.
func TestRefresh_RotateWithinWindow(t *testing.T) {
	server, _, cfg := newTestServer(false)
	handler := server.Routes()

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var clientEd, clientX [32]byte
	copy(clientEd[:], clientPub)

	userID := identity.Derive(cfg.Keys, "refresh-rotate@example.com")
	now := time.Now()
	oldClaims := token.Claims{
		UserID:           userID,
		ExpiresAt:        uint32(now.Add(5 * time.Minute).Unix()), // below 20m threshold
		RefreshExpiresAt: uint32(now.Add(5 * time.Minute).Unix()),
		Ed25519Pub:       clientEd,
		X25519Pub:        clientX,
	}
	refreshToken, err := token.Issue(cfg.Keys, oldClaims, token.TypeRefresh)
	require.NoError(t, err)

	newEd, newEdHex := randomHexPub(t)
	_, newXHex := randomHexPub(t)

	body, err := signedBody(clientPriv, refreshRequest{NewEd25519PubKey: newEdHex, NewX25519PubKey: newXHex})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
	req.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: refreshToken})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp refreshResponse
	decodeEnvelopeBody(t, w, sessionPub(t, cfg, userID, clientEd), &resp)
	assert.Equal(t, hex.EncodeToString(newEd[:]), resp.ServerPubKey)

	var newCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refresh.CookieName {
			newCookie = c
		}
	}
	require.NotNil(t, newCookie)

	newRefreshClaims, err := token.Validate(cfg.Keys, newCookie.Value, token.TypeRefresh, time.Now())
	require.NoError(t, err)
	assert.Equal(t, newEd, newRefreshClaims.Ed25519Pub)

	accessClaims, err := token.Validate(cfg.Keys, resp.AccessToken, token.TypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, newEd, accessClaims.Ed25519Pub)
}

// TestRefresh_ChannelSeparation covers invariant I5: a request carrying
// both a Bearer header and the refresh cookie is rejected outright.
func TestRefresh_ChannelSeparation(t *testing.T) {
	server, _, _ := newTestServer(false)
	handler := server.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(nil))
	req.Header.Set("Authorization", "Bearer sometoken")
	req.AddCookie(&http.Cookie{Name: refresh.CookieName, Value: "sometoken"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestRefresh_MissingCookie covers the no-credential case.
func TestRefresh_MissingCookie(t *testing.T) {
	server, _, _ := newTestServer(false)
	handler := server.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
