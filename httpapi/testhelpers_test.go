package httpapi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/logger"
	"github.com/arkaitz-dev/hashrand/internal/symcrypt"
	"github.com/arkaitz-dev/hashrand/mailer"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
	"github.com/arkaitz-dev/hashrand/storage/memory"
)

// testConfig builds a deterministic, fully-populated config.Config for
// tests: every key is filled with a distinct byte sequence so no two
// derivations collide by accident.
func testConfig() config.Config {
	var k config.Keys
	fill := func(b []byte, seed byte) {
		for i := range b {
			b[i] = seed + byte(i)
		}
	}
	fill(k.UserIDHMACKey[:], 1)
	fill(k.UserIDArgon2Compress[:], 2)
	fill(k.Argon2Salt[:], 3)
	fill(k.ChaChaEncryptionKey[:], 4)
	fill(k.MlinkContentKey[:], 5)
	fill(k.EncryptedMlinkHashKey[:], 6)
	fill(k.Ed25519DerivationKey[:], 7)
	fill(k.AccessCipherKey[:], 8)
	fill(k.AccessNonceKey[:], 9)
	fill(k.AccessHMACKey[:], 10)
	fill(k.RefreshCipherKey[:], 11)
	fill(k.RefreshNonceKey[:], 12)
	fill(k.RefreshHMACKey[:], 13)
	fill(k.PrehashCipherKey[:], 14)
	fill(k.PrehashNonceKey[:], 15)
	fill(k.PrehashHMACKey[:], 16)
	fill(k.SharedSecretDBIndexKey[:], 17)
	fill(k.SharedSecretContentKey[:], 18)
	fill(k.X25519DerivationKey[:], 19)

	return config.Config{
		Keys: k,
		Durations: config.Durations{
			AccessTokenDuration:  5 * time.Minute,
			RefreshTokenDuration: 30 * time.Minute,
		},
		Operational: config.Operational{
			ListenAddr:  ":0",
			Environment: "test",
		},
	}
}

// newTestServer wires a Server over a fresh in-memory store and a
// discard logger, mirroring how cmd/hashrand-server assembles one.
func newTestServer(devMode bool) (*Server, *memory.Store, config.Config) {
	store := memory.NewStore()
	cfg := testConfig()
	log := logger.NewLogger(io.Discard, logger.ErrorLevel)
	m := mailer.NewDevMailer(log)
	return NewServer(cfg, store, m, log, devMode), store, cfg
}

// decodeEnvelopeBody verifies the recorder's JSON envelope body against
// pub and unmarshals its payload into out.
func decodeEnvelopeBody(t *testing.T, w *httptest.ResponseRecorder, pub ed25519.PublicKey, out interface{}) {
	t.Helper()
	var env signedenvelope.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, signedenvelope.Decode(pub, env, out))
}

// decodeEnvelopeOnly unmarshals a response envelope's payload without
// verifying its signature, for tests that only need the body's content
// (e.g. to recover a token before the verifying key is known).
func decodeEnvelopeOnly(w *httptest.ResponseRecorder, out interface{}) error {
	var env signedenvelope.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		return err
	}
	raw, err := base64.RawURLEncoding.DecodeString(env.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// sessionPub computes the public half of the per-session signing key a
// handler should have signed its response with.
func sessionPub(t *testing.T, cfg config.Config, userID identity.UserID, clientEd25519Pub [32]byte) ed25519.PublicKey {
	t.Helper()
	sk := signedenvelope.DeriveSessionKey(cfg.Keys, userID, clientEd25519Pub)
	return sk.Public().(ed25519.PublicKey)
}

// signedBody builds the JSON request body for payload v signed under
// priv, the Envelope format every handler expects.
func signedBody(priv ed25519.PrivateKey, v interface{}) ([]byte, error) {
	env, err := signedenvelope.BuildEnvelope(priv, v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// signedQuery builds a url.Values carrying params plus a "signature"
// parameter computed over the canonical query payload, mirroring how a
// GET-request client signs its query string (spec §4.4).
func signedQuery(priv ed25519.PrivateKey, params map[string]string) (url.Values, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	payloadB64, err := signedenvelope.EncodeQueryPayload(values)
	if err != nil {
		return nil, err
	}
	values.Set("signature", signedenvelope.Sign(priv, payloadB64))
	return values, nil
}

// sealECDHForTest plays the client's role wrapping key material. It
// reproduces sharedsecret's unexported deriveFromSharedSecret rather
// than importing it, mirroring sharedsecret/engine_test.go's own
// sealECDHForTest helper.
func sealECDHForTest(sharedSecret [32]byte, keyMaterial [44]byte) ([]byte, error) {
	h, err := blake3.New(44, sharedSecret[:])
	if err != nil {
		return nil, err
	}
	h.Write([]byte("SharedSecretKeyMaterial_v1"))
	derived := h.Sum(nil)
	nonce, key := symcrypt.SplitNonceKey(derived)
	return symcrypt.AEADEncrypt(key, nonce, keyMaterial[:])
}
