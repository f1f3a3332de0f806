package httpapi

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
	"github.com/arkaitz-dev/hashrand/token"
)

// TestSharedSecret_CreateReadConfirm exercises spec §4.7's full
// create/read/confirm-read cycle through the HTTP surface.
func TestSharedSecret_CreateReadConfirm(t *testing.T) {
	server, _, cfg := newTestServer(false)
	handler := server.Routes()

	const senderEmail = "sender@example.com"
	const receiverEmail = "receiver@example.com"
	senderUserID := identity.Derive(cfg.Keys, senderEmail)
	receiverUserID := identity.Derive(cfg.Keys, receiverEmail)

	senderEdPub, senderEdPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var senderEd, senderX [32]byte
	copy(senderEd[:], senderEdPub)
	_, err = rand.Read(senderX[:])
	require.NoError(t, err)

	receiverEdPub, receiverEdPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var receiverEd, receiverX [32]byte
	copy(receiverEd[:], receiverEdPub)
	_, err = rand.Read(receiverX[:])
	require.NoError(t, err)

	now := time.Now()
	senderAccessToken, err := token.Issue(cfg.Keys, token.Claims{
		UserID:           senderUserID,
		ExpiresAt:        uint32(now.Add(time.Hour).Unix()),
		RefreshExpiresAt: uint32(now.Add(time.Hour).Unix()),
		Ed25519Pub:       senderEd,
		X25519Pub:        senderX,
	}, token.TypeAccess)
	require.NoError(t, err)

	receiverAccessToken, err := token.Issue(cfg.Keys, token.Claims{
		UserID:           receiverUserID,
		ExpiresAt:        uint32(now.Add(time.Hour).Unix()),
		RefreshExpiresAt: uint32(now.Add(time.Hour).Unix()),
		Ed25519Pub:       receiverEd,
		X25519Pub:        receiverX,
	}, token.TypeAccess)
	require.NoError(t, err)

	// Reproduce the handler's own ECDH so the wrapped key material
	// decrypts correctly server-side.
	serverScalar := signedenvelope.DeriveBackendX25519Scalar(cfg.Keys, senderUserID)
	sharedRaw, err := curve25519.X25519(serverScalar, senderX[:])
	require.NoError(t, err)
	var sharedSecret [32]byte
	copy(sharedSecret[:], sharedRaw)

	var keyMaterial [44]byte
	for i := range keyMaterial {
		keyMaterial[i] = byte(i + 1)
	}
	wrapped, err := sealECDHForTest(sharedSecret, keyMaterial)
	require.NoError(t, err)

	const plaintext = "a very secret value"
	createReq := sharedSecretCreateRequest{
		SenderEmail:          senderEmail,
		ReceiverEmail:        receiverEmail,
		Secret:               base64.StdEncoding.EncodeToString([]byte(plaintext)),
		EncryptedKeyMaterial: base64.StdEncoding.EncodeToString(wrapped),
		MaxReads:             3,
	}
	createBody, err := signedBody(senderEdPriv, createReq)
	require.NoError(t, err)

	createHTTPReq := httptest.NewRequest(http.MethodPost, "/api/shared-secret/create", bytes.NewReader(createBody))
	createHTTPReq.Header.Set("Authorization", "Bearer "+senderAccessToken)
	wCreate := httptest.NewRecorder()
	handler.ServeHTTP(wCreate, createHTTPReq)
	require.Equal(t, http.StatusOK, wCreate.Code, wCreate.Body.String())

	var createResp sharedSecretCreateResponse
	decodeEnvelopeBody(t, wCreate, sessionPub(t, cfg, senderUserID, senderEd), &createResp)
	require.NotEmpty(t, createResp.ReferenceHash)

	// Read as the receiver.
	queryValues, err := signedQuery(receiverEdPriv, map[string]string{})
	require.NoError(t, err)
	readHTTPReq := httptest.NewRequest(http.MethodGet, "/api/shared-secret/"+createResp.ReferenceHash+"?"+queryValues.Encode(), nil)
	readHTTPReq.Header.Set("Authorization", "Bearer "+receiverAccessToken)
	wRead := httptest.NewRecorder()
	handler.ServeHTTP(wRead, readHTTPReq)
	require.Equal(t, http.StatusOK, wRead.Code, wRead.Body.String())

	var readResp sharedSecretReadResponse
	decodeEnvelopeBody(t, wRead, sessionPub(t, cfg, receiverUserID, receiverEd), &readResp)
	assert.Equal(t, senderEmail, readResp.SenderEmail)
	assert.Equal(t, receiverEmail, readResp.ReceiverEmail)
	assert.Equal(t, int64(3), readResp.PendingReads)

	decodedSecret, err := base64.StdEncoding.DecodeString(readResp.Secret)
	require.NoError(t, err)
	assert.Equal(t, plaintext, string(decodedSecret))

	// Confirm-read decrements pending_reads.
	confirmValues, err := signedQuery(receiverEdPriv, map[string]string{"hash": createResp.ReferenceHash})
	require.NoError(t, err)
	confirmHTTPReq := httptest.NewRequest(http.MethodGet, "/api/shared-secret/confirm-read?"+confirmValues.Encode(), nil)
	confirmHTTPReq.Header.Set("Authorization", "Bearer "+receiverAccessToken)
	wConfirm := httptest.NewRecorder()
	handler.ServeHTTP(wConfirm, confirmHTTPReq)
	require.Equal(t, http.StatusOK, wConfirm.Code, wConfirm.Body.String())

	var confirmResp sharedSecretConfirmReadResponse
	decodeEnvelopeBody(t, wConfirm, sessionPub(t, cfg, receiverUserID, receiverEd), &confirmResp)
	assert.Equal(t, int64(2), confirmResp.PendingReads)
}

// TestSharedSecret_CreateRejectsSenderMismatch covers the authorization
// consistency check: a caller cannot create a secret on behalf of an
// email that doesn't derive to their own token's UserId.
func TestSharedSecret_CreateRejectsSenderMismatch(t *testing.T) {
	server, _, cfg := newTestServer(false)
	handler := server.Routes()

	callerUserID := identity.Derive(cfg.Keys, "caller@example.com")
	callerEdPub, callerEdPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var callerEd, callerX [32]byte
	copy(callerEd[:], callerEdPub)

	now := time.Now()
	accessToken, err := token.Issue(cfg.Keys, token.Claims{
		UserID:           callerUserID,
		ExpiresAt:        uint32(now.Add(time.Hour).Unix()),
		RefreshExpiresAt: uint32(now.Add(time.Hour).Unix()),
		Ed25519Pub:       callerEd,
		X25519Pub:        callerX,
	}, token.TypeAccess)
	require.NoError(t, err)

	createReq := sharedSecretCreateRequest{
		SenderEmail:          "someone-else@example.com",
		ReceiverEmail:        "receiver@example.com",
		Secret:               base64.StdEncoding.EncodeToString([]byte("x")),
		EncryptedKeyMaterial: base64.StdEncoding.EncodeToString(make([]byte, 60)),
		MaxReads:             1,
	}
	body, err := signedBody(callerEdPriv, createReq)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/shared-secret/create", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
