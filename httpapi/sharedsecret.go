package httpapi

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"golang.org/x/crypto/curve25519"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/sharedsecret"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
)

// defaultSharedSecretValidity is used when the request omits expires_in_hours.
const defaultSharedSecretValidity = 72 * time.Hour

type sharedSecretCreateRequest struct {
	SenderEmail          string `json:"sender_email"`
	ReceiverEmail        string `json:"receiver_email"`
	Secret               string `json:"secret"`                 // base64
	EncryptedKeyMaterial string `json:"encrypted_key_material"` // base64, ECDH-wrapped
	MaxReads             int64  `json:"max_reads"`
	ExpiresInHours       int64  `json:"expires_in_hours,omitempty"`
	RequireOTP           bool   `json:"require_otp,omitempty"`
}

type sharedSecretCreateResponse struct {
	ReferenceHash string `json:"reference_hash"`
	OTP           string `json:"otp,omitempty"`
}

// handleSharedSecretCreate implements POST /api/shared-secret/create
// (spec §4.7 Create, §6). Bearer+signature auth: the envelope is
// verified against the raw client Ed25519 key carried in the access
// token's claims.
func (s *Server) handleSharedSecretCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		writeError(w, apperr.InvalidSignature())
		return
	}

	env, err := readEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req sharedSecretCreateRequest
	if err := signedenvelope.Decode(claims.Ed25519Pub[:], env, &req); err != nil {
		writeError(w, err)
		return
	}

	if identity.Derive(s.cfg.Keys, req.SenderEmail) != claims.UserID {
		writeError(w, apperr.InvalidSignature())
		return
	}

	secret, err := base64.StdEncoding.DecodeString(req.Secret)
	if err != nil {
		writeError(w, apperr.Malformed("secret", "invalid base64"))
		return
	}
	encryptedKeyMaterial, err := base64.StdEncoding.DecodeString(req.EncryptedKeyMaterial)
	if err != nil {
		writeError(w, apperr.Malformed("encrypted_key_material", "invalid base64"))
		return
	}

	scalar := signedenvelope.DeriveBackendX25519Scalar(s.cfg.Keys, claims.UserID)
	shared, err := curve25519.X25519(scalar, claims.X25519Pub[:])
	if err != nil {
		writeError(w, apperr.Internal("failed to compute ECDH shared secret", err))
		return
	}
	var ecdhSharedSecret [32]byte
	copy(ecdhSharedSecret[:], shared)

	otp := ""
	if req.RequireOTP {
		otp, err = sharedsecret.GenerateOTP()
		if err != nil {
			writeError(w, err)
			return
		}
	}

	expiresIn := defaultSharedSecretValidity
	if req.ExpiresInHours > 0 {
		expiresIn = time.Duration(req.ExpiresInHours) * time.Hour
	}

	referenceHash, err := s.shared.Create(r.Context(), sharedsecret.CreateRequest{
		SenderEmail:          req.SenderEmail,
		ReceiverEmail:        req.ReceiverEmail,
		ECDHSharedSecret:     ecdhSharedSecret,
		EncryptedKeyMaterial: encryptedKeyMaterial,
		Secret:               secret,
		ExpiresIn:            expiresIn,
		MaxReads:             req.MaxReads,
		OTP:                  otp,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := sharedSecretCreateResponse{ReferenceHash: hex.EncodeToString(referenceHash[:]), OTP: otp}

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, claims.UserID, claims.Ed25519Pub)
	writeSigned(w, sessionKey, resp)
}

type sharedSecretReadResponse struct {
	SenderEmail   string `json:"sender_email"`
	ReceiverEmail string `json:"receiver_email"`
	Secret        string `json:"secret"` // base64
	PendingReads  int64  `json:"pending_reads"`
	ExpiresAt     int64  `json:"expires_at"`
}

// handleSharedSecretRead implements GET/POST /api/shared-secret/{hash}
// (spec §4.7 Read, §6).
func (s *Server) handleSharedSecretRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		writeError(w, apperr.InvalidSignature())
		return
	}

	referenceHash, err := decodeReferenceHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, err)
		return
	}

	otp, err := verifyAndExtractOTP(r, claims.Ed25519Pub)
	if err != nil {
		writeError(w, err)
		return
	}

	dbIndex := sharedsecret.GenerateDBIndex(s.cfg.Keys, referenceHash, claims.UserID)
	result, err := s.shared.Read(r.Context(), dbIndex, referenceHash, now())
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Payload.OTP != "" && !sharedsecret.ValidateOTP(result.Payload.OTP, otp) {
		writeError(w, apperr.InvalidSignature())
		return
	}

	resp := sharedSecretReadResponse{
		SenderEmail:   result.Payload.SenderEmail,
		ReceiverEmail: result.Payload.ReceiverEmail,
		Secret:        base64.StdEncoding.EncodeToString(result.Payload.Secret),
		PendingReads:  result.PendingReads,
		ExpiresAt:     result.ExpiresAt.Unix(),
	}

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, claims.UserID, claims.Ed25519Pub)
	writeSigned(w, sessionKey, resp)
}

type sharedSecretConfirmReadResponse struct {
	Message      string `json:"message"`
	PendingReads int64  `json:"pending_reads"`
}

// handleSharedSecretConfirmRead implements GET
// /api/shared-secret/confirm-read?hash=… (spec §4.7 Confirm-read, §6).
func (s *Server) handleSharedSecretConfirmRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r)
	if !ok {
		writeError(w, apperr.InvalidSignature())
		return
	}

	if err := verifyQueryEnvelope(r, claims.Ed25519Pub[:]); err != nil {
		writeError(w, err)
		return
	}

	referenceHash, err := decodeReferenceHash(r.URL.Query().Get("hash"))
	if err != nil {
		writeError(w, err)
		return
	}

	dbIndex := sharedsecret.GenerateDBIndex(s.cfg.Keys, referenceHash, claims.UserID)
	row, err := s.store.GetRow(r.Context(), dbIndex)
	if err != nil {
		writeError(w, apperr.NotFound("shared secret"))
		return
	}

	remaining, err := s.shared.ConfirmRead(r.Context(), row.Role, referenceHash)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, claims.UserID, claims.Ed25519Pub)
	writeSigned(w, sessionKey, sharedSecretConfirmReadResponse{Message: "read confirmed", PendingReads: remaining})
}

func decodeReferenceHash(s string) ([16]byte, error) {
	var out [16]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return out, apperr.Malformed("hash", "expected 16-byte hex-encoded reference hash")
	}
	copy(out[:], raw)
	return out, nil
}

type otpPayload struct {
	OTP string `json:"otp,omitempty"`
}

// verifyAndExtractOTP verifies the request's envelope (query params for
// GET, body for POST) against pub and returns the optional otp field
// carried alongside.
func verifyAndExtractOTP(r *http.Request, pub [32]byte) (string, error) {
	if r.Method == http.MethodGet {
		if err := verifyQueryEnvelope(r, pub[:]); err != nil {
			return "", err
		}
		return r.URL.Query().Get("otp"), nil
	}

	env, err := readEnvelope(r)
	if err != nil {
		return "", err
	}
	var payload otpPayload
	if err := signedenvelope.Decode(pub[:], env, &payload); err != nil {
		return "", err
	}
	return payload.OTP, nil
}
