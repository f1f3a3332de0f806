package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/token"
)

func testRefreshKeys() config.Keys {
	var k config.Keys
	fill := func(b []byte, seed byte) {
		for i := range b {
			b[i] = seed + byte(i)
		}
	}
	fill(k.AccessCipherKey[:], 1)
	fill(k.AccessNonceKey[:], 2)
	fill(k.AccessHMACKey[:], 3)
	fill(k.RefreshCipherKey[:], 4)
	fill(k.RefreshNonceKey[:], 5)
	fill(k.RefreshHMACKey[:], 6)
	fill(k.PrehashCipherKey[:], 7)
	fill(k.PrehashNonceKey[:], 8)
	fill(k.PrehashHMACKey[:], 9)
	return k
}

func TestDecide_ThresholdBoundary(t *testing.T) {
	durations := config.Durations{RefreshTokenDuration: 30 * time.Minute}
	now := time.Now()

	twoThirds := durations.TwoThirds()

	t.Run("just below threshold rotates", func(t *testing.T) {
		exp := uint32(now.Unix() + twoThirds - 1)
		assert.Equal(t, DecisionRotate, Decide(durations, exp, now))
	})

	t.Run("just above threshold reuses", func(t *testing.T) {
		exp := uint32(now.Unix() + twoThirds + 1)
		assert.Equal(t, DecisionReuse, Decide(durations, exp, now))
	})
}

func TestEngine_Handle_ReuseWhenFresh(t *testing.T) {
	keys := testRefreshKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	now := time.Now()

	claims := token.Claims{ExpiresAt: uint32(now.Add(25 * time.Minute).Unix())}
	refreshTok, err := token.Issue(keys, claims, token.TypeRefresh)
	require.NoError(t, err)

	engine := NewEngine(keys, durations)
	result, err := engine.Handle(refreshTok, NewKeyPair{}, now)
	require.NoError(t, err)
	assert.Equal(t, DecisionReuse, result.Decision)
	assert.Empty(t, result.NewRefreshToken)
}

func TestEngine_Handle_RotateInWindow(t *testing.T) {
	keys := testRefreshKeys()
	durations := config.Durations{AccessTokenDuration: 5 * time.Minute, RefreshTokenDuration: 30 * time.Minute}
	now := time.Now()

	claims := token.Claims{ExpiresAt: uint32(now.Add(5 * time.Minute).Unix())}
	refreshTok, err := token.Issue(keys, claims, token.TypeRefresh)
	require.NoError(t, err)

	var newKeys NewKeyPair
	newKeys.NewEd25519PubKey[0] = 0x42

	engine := NewEngine(keys, durations)
	result, err := engine.Handle(refreshTok, newKeys, now)
	require.NoError(t, err)
	assert.Equal(t, DecisionRotate, result.Decision)
	assert.NotEmpty(t, result.NewRefreshToken)
	assert.Equal(t, newKeys.NewEd25519PubKey, result.PinnedEd25519Pub)
}
