package refresh

import (
	"time"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/token"
)

// NewKeyPair is the refresh request's typed payload (spec §6 POST /api/refresh).
type NewKeyPair struct {
	NewEd25519PubKey [32]byte
	NewX25519PubKey  [32]byte
}

// Result is what the /refresh handler needs to build its signed
// response and, when rotating, the new Set-Cookie.
type Result struct {
	AccessToken        string
	NewRefreshToken     string // empty unless Decision == DecisionRotate
	Decision            Decision
	SignSessionUserID    [16]byte
	SignWithEd25519Pub   [32]byte // old keys when reusing, old keys when rotating (sign with what client already knows)
	PinnedEd25519Pub     [32]byte // new keys when rotating; equals SignWithEd25519Pub when reusing
}

// Engine orchestrates spec §4.6 steps 3-7, given an already
// channel-separation-checked and already-extracted refresh token string
// and the caller-supplied new key pair from the signed request body.
type Engine struct {
	keys      config.Keys
	durations config.Durations
}

func NewEngine(keys config.Keys, durations config.Durations) *Engine {
	return &Engine{keys: keys, durations: durations}
}

// Handle implements spec §4.6 steps 3-7.
func (e *Engine) Handle(refreshTokenStr string, newKeys NewKeyPair, now time.Time) (Result, error) {
	claims, err := token.Validate(e.keys, refreshTokenStr, token.TypeRefresh, now)
	if err != nil {
		return Result{}, err
	}

	decision := Decide(e.durations, claims.ExpiresAt, now)

	if decision == DecisionReuse {
		accessClaims := token.Claims{
			UserID:           claims.UserID,
			ExpiresAt:        uint32(now.Add(e.durations.AccessTokenDuration).Unix()),
			RefreshExpiresAt: claims.ExpiresAt,
			Ed25519Pub:       claims.Ed25519Pub,
			X25519Pub:        claims.X25519Pub,
		}
		accessToken, err := token.Issue(e.keys, accessClaims, token.TypeAccess)
		if err != nil {
			return Result{}, err
		}
		return Result{
			AccessToken:      accessToken,
			Decision:         DecisionReuse,
			SignSessionUserID: claims.UserID,
			SignWithEd25519Pub: claims.Ed25519Pub,
			PinnedEd25519Pub: claims.Ed25519Pub,
		}, nil
	}

	// Rotation window: issue fresh access + refresh tokens carrying the
	// new keys, but sign the response with the session key derived from
	// the OLD keys so the client can verify with what it already knows
	// (spec §4.6 step 6).
	newRefreshExpiresAt := uint32(now.Add(e.durations.RefreshTokenDuration).Unix())
	newAccessClaims := token.Claims{
		UserID:           claims.UserID,
		ExpiresAt:        uint32(now.Add(e.durations.AccessTokenDuration).Unix()),
		RefreshExpiresAt: newRefreshExpiresAt,
		Ed25519Pub:       newKeys.NewEd25519PubKey,
		X25519Pub:        newKeys.NewX25519PubKey,
	}
	accessToken, err := token.Issue(e.keys, newAccessClaims, token.TypeAccess)
	if err != nil {
		return Result{}, err
	}

	newRefreshClaims := token.Claims{
		UserID:           claims.UserID,
		ExpiresAt:        newRefreshExpiresAt,
		RefreshExpiresAt: newRefreshExpiresAt,
		Ed25519Pub:       newKeys.NewEd25519PubKey,
		X25519Pub:        newKeys.NewX25519PubKey,
	}
	newRefreshToken, err := token.Issue(e.keys, newRefreshClaims, token.TypeRefresh)
	if err != nil {
		return Result{}, err
	}

	return Result{
		AccessToken:        accessToken,
		NewRefreshToken:     newRefreshToken,
		Decision:            DecisionRotate,
		SignSessionUserID:   claims.UserID,
		SignWithEd25519Pub:  claims.Ed25519Pub, // old key: sign with what client already knows
		PinnedEd25519Pub:    newKeys.NewEd25519PubKey, // server_pub_key pins the new key
	}, nil
}
