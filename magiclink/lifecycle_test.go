package magiclink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[[16]byte]Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[[16]byte]Record)}
}

func (f *fakeStore) Create(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.DBKey] = rec
	return nil
}

func (f *fakeStore) GetAndDelete(_ context.Context, dbKey [16]byte) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[dbKey]
	if !ok {
		return Record{}, assert.AnError
	}
	delete(f.records, dbKey)
	return rec, nil
}

func (f *fakeStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, v := range f.records {
		if now.After(v.ExpiresAt) {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

func testMagicLinkKeys() config.Keys {
	var k config.Keys
	fill := func(b []byte, seed byte) {
		for i := range b {
			b[i] = seed + byte(i)
		}
	}
	fill(k.ChaChaEncryptionKey[:], 1)
	fill(k.MlinkContentKey[:], 2)
	fill(k.EncryptedMlinkHashKey[:], 3)
	return k
}

func TestIssueThenValidateAndConsume(t *testing.T) {
	keys := testMagicLinkKeys()
	store := newFakeStore()
	ctx := context.Background()
	now := time.Now()

	var ed [32]byte
	ed[0] = 0xAA
	var x [32]byte
	x[0] = 0xBB

	tok, err := Issue(ctx, keys, store, IssueRequest{
		Ed25519Pub: ed,
		X25519Pub:  x,
		UIHost:     "example.com",
		NextPath:   "/dashboard",
		Email:      "a@b.c",
		ExpiresIn:  time.Hour,
	}, now)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	payload, err := ValidateAndConsume(ctx, keys, store, tok, now)
	require.NoError(t, err)
	assert.Equal(t, ed, payload.Ed25519Pub)
	assert.Equal(t, x, payload.X25519Pub)
	assert.Equal(t, "example.com", payload.UIHost)
	assert.Equal(t, "/dashboard", payload.NextPath)
	assert.Equal(t, "a@b.c", payload.Email)
}

func TestValidateAndConsume_SecondRedemptionFails(t *testing.T) {
	keys := testMagicLinkKeys()
	store := newFakeStore()
	ctx := context.Background()
	now := time.Now()

	tok, err := Issue(ctx, keys, store, IssueRequest{ExpiresIn: time.Hour}, now)
	require.NoError(t, err)

	_, err = ValidateAndConsume(ctx, keys, store, tok, now)
	require.NoError(t, err)

	_, err = ValidateAndConsume(ctx, keys, store, tok, now)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestValidateAndConsume_ExpiredRejected(t *testing.T) {
	keys := testMagicLinkKeys()
	store := newFakeStore()
	ctx := context.Background()
	now := time.Now()

	tok, err := Issue(ctx, keys, store, IssueRequest{ExpiresIn: time.Millisecond}, now)
	require.NoError(t, err)

	_, err = ValidateAndConsume(ctx, keys, store, tok, now.Add(time.Hour))
	require.Error(t, err)
}
