package signedenvelope

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
)

// Envelope is the wire format spec §4.4 requires for every authenticated
// call: a Base64url-no-padding payload and a Base58 Ed25519 signature.
type Envelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// EncodePayload canonicalizes v and Base64url-no-padding-encodes it.
func EncodePayload(v interface{}) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", apperr.Internal("failed to canonicalize payload", err)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(canonical)), nil
}

// Sign signs the Base64 string bytes themselves (not the decoded JSON),
// per spec §4.4's explicit redesign of the original behavior: this
// removes any ambiguity about UTF-8 normalization or whitespace between
// parties.
func Sign(priv ed25519.PrivateKey, payloadB64 string) string {
	sig := ed25519.Sign(priv, []byte(payloadB64))
	return base58.Encode(sig)
}

// BuildEnvelope is the Sign-side convenience: canonicalize, encode, sign.
func BuildEnvelope(priv ed25519.PrivateKey, v interface{}) (Envelope, error) {
	payloadB64, err := EncodePayload(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Payload: payloadB64, Signature: Sign(priv, payloadB64)}, nil
}

// Verify checks env.Signature against the Base64 string bytes of
// env.Payload under pub. Returns apperr.InvalidSignature() on mismatch.
func Verify(pub ed25519.PublicKey, env Envelope) error {
	sig, err := base58.Decode(env.Signature)
	if err != nil {
		return apperr.InvalidSignature()
	}
	if !ed25519.Verify(pub, []byte(env.Payload), sig) {
		return apperr.InvalidSignature()
	}
	return nil
}

// Decode verifies env against pub, then Base64url-decodes and
// JSON-unmarshals the payload into out. Per spec §4.4's verification
// order: "decode Base64 to get the canonical JSON string; verify
// signature of that exact byte sequence; then deserialize".
func Decode(pub ed25519.PublicKey, env Envelope, out interface{}) error {
	if err := Verify(pub, env); err != nil {
		return err
	}
	raw, err := base64.RawURLEncoding.DecodeString(env.Payload)
	if err != nil {
		return apperr.Malformed("payload", "invalid base64url payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Malformed("payload", "invalid JSON payload")
	}
	return nil
}
