package httpapi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
)

// readEnvelope decodes the request body into a signedenvelope.Envelope.
func readEnvelope(r *http.Request) (signedenvelope.Envelope, error) {
	var env signedenvelope.Envelope
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return env, apperr.Malformed("body", "failed to read request body")
	}
	if len(body) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, apperr.Malformed("body", "invalid envelope JSON")
	}
	return env, nil
}

// peekPayloadField decodes env.Payload WITHOUT verifying its signature, so
// the handler can discover which public-key source applies (spec §4.4's
// priority-ordered resolver) before verification happens for real.
func peekPayloadField(env signedenvelope.Envelope, out interface{}) error {
	raw, err := base64.RawURLEncoding.DecodeString(env.Payload)
	if err != nil {
		return apperr.Malformed("payload", "invalid base64url payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Malformed("payload", "invalid JSON payload")
	}
	return nil
}

// verifyQueryEnvelope reconstructs the canonical payload from r's query
// parameters (excluding "signature") and verifies it against pub, per
// spec §4.4's GET-request convention.
func verifyQueryEnvelope(r *http.Request, pub ed25519.PublicKey) error {
	payloadB64, err := signedenvelope.EncodeQueryPayload(r.URL.Query())
	if err != nil {
		return err
	}
	sig := r.URL.Query().Get("signature")
	return signedenvelope.Verify(pub, signedenvelope.Envelope{Payload: payloadB64, Signature: sig})
}

// writeSigned signs payload with sk and writes it as the JSON response.
func writeSigned(w http.ResponseWriter, sk ed25519.PrivateKey, payload interface{}) {
	env, err := signedenvelope.BuildEnvelope(sk, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}

// writeError maps an apperr.Error (or any error) to spec §7's status code
// and writes a minimal JSON body. Internal causes are never serialized.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.StatusCode(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
