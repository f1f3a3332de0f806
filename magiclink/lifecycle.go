package magiclink

import (
	"context"
	"time"

	"github.com/mr-tron/base58"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
)

// Store persists MagicLinkRecords, keyed by their 16-byte DB key.
// GetAndDelete must fetch and delete in a single logical step (spec
// invariant I1); if the backing store cannot guarantee atomicity, the
// implementation should SELECT then DELETE and require the DELETE to
// affect exactly one row before returning success.
type Store interface {
	Create(ctx context.Context, rec Record) error
	GetAndDelete(ctx context.Context, dbKey [16]byte) (Record, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IssueRequest bundles the inputs to Issue.
type IssueRequest struct {
	Ed25519Pub [32]byte
	X25519Pub  [32]byte
	UIHost     string
	NextPath   string
	Email      string
	ExpiresIn  time.Duration
}

// Issue implements spec §4.3's Issue operation, returning the user-
// visible Base58 URL token.
func Issue(ctx context.Context, keys config.Keys, store Store, req IssueRequest, now time.Time) (string, error) {
	encryptedLink, nonce, key, err := encryptLinkIdentifier(keys)
	if err != nil {
		return "", err
	}

	payload := buildPayload(nonce, key, req.Ed25519Pub, req.X25519Pub, req.UIHost, req.NextPath, req.Email)
	blob, err := encryptBlob(keys, encryptedLink, payload)
	if err != nil {
		return "", apperr.Internal("failed to encrypt magic-link payload", err)
	}

	dbKey := dbKeyFor(keys, encryptedLink)

	if err := store.Create(ctx, Record{
		DBKey:     dbKey,
		Blob:      blob,
		ExpiresAt: now.Add(req.ExpiresIn),
	}); err != nil {
		return "", apperr.Internal("failed to store magic-link record", err)
	}

	return base58.Encode(encryptedLink), nil
}

// ValidateAndConsume implements spec §4.3's validate-and-consume
// operation (invariant I1: at-most-once redemption). Every failure
// collapses to a generic error per the error taxonomy (spec §4.3: "not
// found → generic 401; decrypt failure → generic 401; payload too short
// → generic 401").
func ValidateAndConsume(ctx context.Context, keys config.Keys, store Store, tokenStr string, now time.Time) (Payload, error) {
	encryptedLink, err := base58.Decode(tokenStr)
	if err != nil {
		return Payload{}, apperr.NotFound("magic link")
	}

	dbKey := dbKeyFor(keys, encryptedLink)

	rec, err := store.GetAndDelete(ctx, dbKey)
	if err != nil {
		return Payload{}, apperr.NotFound("magic link")
	}
	if now.After(rec.ExpiresAt) {
		return Payload{}, apperr.NotFound("magic link")
	}

	raw, err := decryptBlob(keys, encryptedLink, rec.Blob)
	if err != nil {
		return Payload{}, apperr.NotFound("magic link")
	}

	nonce, key, ed25519Pub, x25519Pub, uiHost, nextPath, email, err := parsePayload(raw)
	if err != nil {
		return Payload{}, apperr.NotFound("magic link")
	}

	// R is recoverable but this module does not need to expose it
	// downstream (spec §4.3 validate step 4 notes it "may be used
	// downstream but the spec does not require exposing R").
	if _, err := recoverLinkIdentifier(nonce, key, encryptedLink); err != nil {
		return Payload{}, apperr.NotFound("magic link")
	}

	return Payload{
		Ed25519Pub: ed25519Pub,
		X25519Pub:  x25519Pub,
		UIHost:     uiHost,
		NextPath:   nextPath,
		Email:      email,
	}, nil
}
