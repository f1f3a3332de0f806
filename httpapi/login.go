package httpapi

import (
	"crypto/ed25519"
	"net/http"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/internal/logger"
	"github.com/arkaitz-dev/hashrand/magiclink"
	"github.com/arkaitz-dev/hashrand/mailer"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
	"github.com/arkaitz-dev/hashrand/token"
)

// loginIssueRequest is POST /api/login/'s payload (spec §6).
type loginIssueRequest struct {
	Email         string `json:"email"`
	UIHost        string `json:"ui_host"`
	Next          string `json:"next"`
	EmailLang     string `json:"email_lang"`
	Ed25519PubKey string `json:"ed25519_pub_key"` // hex, spec §8 scenario 1
	X25519PubKey  string `json:"x25519_pub_key"`  // hex
}

type loginIssueResponse struct {
	Message      string `json:"message"`
	DevMagicLink string `json:"dev_magic_link,omitempty"`
}

// magicLinkConsumeRequest is POST /api/login/magiclink/'s payload.
type magicLinkConsumeRequest struct {
	MagicLink string `json:"magiclink"`
}

type magicLinkConsumeResponse struct {
	AccessToken        string `json:"access_token"`
	User               string `json:"user"`
	Next               string `json:"next,omitempty"`
	ExpiresAt          int64  `json:"expires_at,omitempty"`
	ServerPubKey       string `json:"server_pub_key,omitempty"`
	ServerX25519PubKey string `json:"server_x25519_pub_key,omitempty"`
}

// handleLoginIssue implements POST /api/login/ (spec §4.3 Issue, §6).
// The request is signed under the client's own Ed25519 key, supplied in
// the payload itself (public-key source #2 of §4.4's resolver), since no
// token exists yet.
func (s *Server) handleLoginIssue(w http.ResponseWriter, r *http.Request) {
	env, err := readEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var peek struct {
		Ed25519PubKey string `json:"ed25519_pub_key"`
	}
	if err := peekPayloadField(env, &peek); err != nil {
		writeError(w, err)
		return
	}
	clientPub, err := decodeHexPubKey(peek.Ed25519PubKey)
	if err != nil {
		writeError(w, err)
		return
	}

	var req loginIssueRequest
	if err := signedenvelope.Decode(ed25519.PublicKey(clientPub[:]), env, &req); err != nil {
		writeError(w, err)
		return
	}

	ed25519Pub := clientPub
	x25519Pub, err := decodeHexPubKey(req.X25519PubKey)
	if err != nil {
		writeError(w, err)
		return
	}

	linkToken, err := magiclink.Issue(r.Context(), s.cfg.Keys, s.store, magiclink.IssueRequest{
		Ed25519Pub: ed25519Pub,
		X25519Pub:  x25519Pub,
		UIHost:     req.UIHost,
		NextPath:   req.Next,
		Email:      req.Email,
		ExpiresIn:  magicLinkValidity,
	}, now())
	if err != nil {
		writeError(w, err)
		return
	}

	link := mailer.BuildMagicLinkURL(req.UIHost, req.Next, linkToken)
	if err := s.mailer.Send(r.Context(), mailer.Message{To: req.Email, Lang: req.EmailLang, Link: link}); err != nil {
		// spec §4.9: a mail-transport failure after the row is persisted
		// still returns success; the link remains redeemable from logs.
		s.log.Warn("failed to send magic-link email", logger.String("err", err.Error()))
	}

	resp := loginIssueResponse{Message: "magic link issued"}
	if s.devMode {
		resp.DevMagicLink = link
	}

	userID := identity.Derive(s.cfg.Keys, req.Email)
	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, userID, ed25519Pub)
	writeSigned(w, sessionKey, resp)
}

// handleLoginMagicLink implements POST /api/login/magiclink/ (spec §4.3
// validate-and-consume, §6). The magic link is consumed as part of
// recovering the public key needed to verify the envelope signature, so
// it is consumed even if the signature subsequently fails to verify
// (spec I1's at-most-once semantics apply regardless).
func (s *Server) handleLoginMagicLink(w http.ResponseWriter, r *http.Request) {
	env, err := readEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var peek struct {
		MagicLink string `json:"magiclink"`
	}
	if err := peekPayloadField(env, &peek); err != nil {
		writeError(w, err)
		return
	}
	if peek.MagicLink == "" {
		writeError(w, apperr.Malformed("magiclink", "missing magiclink field"))
		return
	}

	link, err := magiclink.ValidateAndConsume(r.Context(), s.cfg.Keys, s.store, peek.MagicLink, now())
	if err != nil {
		writeError(w, err)
		return
	}

	var req magicLinkConsumeRequest
	if err := signedenvelope.Decode(ed25519.PublicKey(link.Ed25519Pub[:]), env, &req); err != nil {
		writeError(w, err)
		return
	}

	userID := identity.Derive(s.cfg.Keys, link.Email)

	accessExpiresAt := now().Add(s.cfg.Durations.AccessTokenDuration)
	refreshExpiresAt := now().Add(s.cfg.Durations.RefreshTokenDuration)

	accessToken, err := issueToken(s, userID, link.Ed25519Pub, link.X25519Pub, accessExpiresAt, refreshExpiresAt, false)
	if err != nil {
		writeError(w, err)
		return
	}
	refreshToken, err := issueToken(s, userID, link.Ed25519Pub, link.X25519Pub, refreshExpiresAt, refreshExpiresAt, true)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, buildRefreshCookie(s, r, refreshToken))

	serverX25519Pub, err := signedenvelope.DeriveBackendX25519PublicKey(s.cfg.Keys, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := magicLinkConsumeResponse{
		AccessToken:        accessToken,
		User:               identity.Username(userID),
		Next:               link.NextPath,
		ExpiresAt:          accessExpiresAt.Unix(),
		ServerX25519PubKey: encodeHexPubKey(serverX25519Pub),
	}

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, userID, link.Ed25519Pub)
	writeSigned(w, sessionKey, resp)
}

// handleLogout implements DELETE /api/login/ (spec §6): cookie+signature
// auth (this path is public in the Bearer sense; the refresh cookie is
// the credential), expires the refresh cookie, and returns a signed
// acknowledgement.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookieVal, ok := refreshCookieValue(r)
	if !ok {
		writeError(w, apperr.InvalidSignature())
		return
	}

	claims, err := token.Validate(s.cfg.Keys, cookieVal, token.TypeRefresh, now())
	if err != nil {
		writeError(w, err)
		return
	}

	env, err := readEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := signedenvelope.Verify(ed25519.PublicKey(claims.Ed25519Pub[:]), env); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, expireRefreshCookie(r))

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, claims.UserID, claims.Ed25519Pub)
	writeSigned(w, sessionKey, map[string]string{"message": "logged out"})
}
