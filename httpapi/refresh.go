package httpapi

import (
	"crypto/ed25519"
	"net/http"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/signedenvelope"
	"github.com/arkaitz-dev/hashrand/token"
)

// refreshRequest is POST /api/refresh's payload (spec §6). The new key
// pair is always supplied since the client cannot know in advance
// whether the 2/3 threshold will trigger a rotation.
type refreshRequest struct {
	NewEd25519PubKey string `json:"new_ed25519_pub_key"`
	NewX25519PubKey  string `json:"new_x25519_pub_key"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ServerPubKey string `json:"server_pub_key,omitempty"`
}

// handleRefresh implements POST /api/refresh (spec §4.6, §6). This path
// is public per the middleware's classification (the refresh cookie,
// not a Bearer token, is the credential), so channel separation and
// signature verification are performed here rather than by Wrap.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, hasBearer := extractBearerToken(r)
	cookieVal, hasCookie := refreshCookieValue(r)

	if hasBearer && hasCookie {
		writeError(w, apperr.ChannelViolation())
		return
	}
	if !hasCookie {
		writeError(w, apperr.InvalidSignature())
		return
	}

	oldClaims, err := token.Validate(s.cfg.Keys, cookieVal, token.TypeRefresh, now())
	if err != nil {
		writeError(w, err)
		return
	}

	env, err := readEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req refreshRequest
	if err := signedenvelope.Decode(ed25519.PublicKey(oldClaims.Ed25519Pub[:]), env, &req); err != nil {
		writeError(w, err)
		return
	}

	newEd25519Pub, err := decodeHexPubKey(req.NewEd25519PubKey)
	if err != nil {
		writeError(w, err)
		return
	}
	newX25519Pub, err := decodeHexPubKey(req.NewX25519PubKey)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.refresh.Handle(cookieVal, refresh.NewKeyPair{
		NewEd25519PubKey: newEd25519Pub,
		NewX25519PubKey:  newX25519Pub,
	}, now())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := refreshResponse{AccessToken: result.AccessToken}

	if result.Decision == refresh.DecisionRotate {
		http.SetCookie(w, buildRefreshCookie(s, r, result.NewRefreshToken))
		resp.ServerPubKey = encodeHexPubKey(result.PinnedEd25519Pub)
	}

	sessionKey := signedenvelope.DeriveSessionKey(s.cfg.Keys, result.SignSessionUserID, result.SignWithEd25519Pub)
	writeSigned(w, sessionKey, resp)
}

// extractBearerToken mirrors middleware's unexported extractBearer so
// handlers on public paths (which Wrap does not channel-check) can apply
// spec I5 themselves.
func extractBearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}
