// internal/auth/session_test.go
package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init(0))

	playerID := uuid.New()
	token, err := CreateSeatToken("K7QX2M", playerID)
	require.NoError(t, err)

	room, gotID, err := VerifySeatToken(token)
	require.NoError(t, err)
	assert.Equal(t, "K7QX2M", room)
	assert.Equal(t, playerID, gotID)
}

func TestSeatTokenRejectsTampering(t *testing.T) {
	require.NoError(t, Init(0))

	token, err := CreateSeatToken("K7QX2M", uuid.New())
	require.NoError(t, err)

	_, _, err = VerifySeatToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSeatToken)

	// keys rotate on Init, old tokens stop verifying
	require.NoError(t, Init(0))
	_, _, err = VerifySeatToken(token)
	assert.ErrorIs(t, err, ErrInvalidSeatToken)
}

func TestSeatTokenExpiry(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	keyMu.RLock()
	priv := privateKey
	keyMu.RUnlock()

	claims := SeatClaims{
		Room: "K7QX2M",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	require.NoError(t, err)

	_, _, err = VerifySeatToken(expired)
	assert.ErrorIs(t, err, ErrInvalidSeatToken)
}

func TestSeatTokenRejectsOtherAlgorithms(t *testing.T) {
	require.NoError(t, Init(0))

	claims := SeatClaims{Room: "K7QX2M", RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}}
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, _, err = VerifySeatToken(hs)
	assert.ErrorIs(t, err, ErrInvalidSeatToken)
}

func TestInitFromPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "seat.key")
	pubPath := filepath.Join(dir, "seat.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	require.NoError(t, InitFromPath(privPath, pubPath, 0))
	token, err := CreateSeatToken("ROOM42", uuid.New())
	require.NoError(t, err)
	_, _, err = VerifySeatToken(token)
	assert.NoError(t, err)

	assert.Error(t, InitFromPath(filepath.Join(dir, "missing"), pubPath, 0))
}
