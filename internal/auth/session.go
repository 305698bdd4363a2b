// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying seat tokens.
var (
	keyMu      sync.RWMutex
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a seat token stays valid (0 => no exp claim).
	tokenTTL time.Duration
)

// ErrInvalidSeatToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidSeatToken = errors.New("invalid seat token")

// SeatClaims binds a token to one seat in one room.
type SeatClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// Init generates a fresh ed25519 key pair at runtime. Tokens issued before a restart
// become invalid, which matches rooms not surviving restarts either.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	keyMu.Lock()
	defer keyMu.Unlock()
	publicKey, privateKey = pub, priv
	tokenTTL = ttl
	return nil
}

// InitFromPath reads raw ed25519 private/public keys from file.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}

	keyMu.Lock()
	defer keyMu.Unlock()
	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL = ttl
	return nil
}

// CreateSeatToken signs a token with "sub" = playerID and "room" = roomCode.
func CreateSeatToken(roomCode string, playerID uuid.UUID) (string, error) {
	keyMu.RLock()
	defer keyMu.RUnlock()
	if privateKey == nil {
		return "", fmt.Errorf("auth keys not initialized")
	}

	now := time.Now()
	claims := SeatClaims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifySeatToken checks a seat token and returns the room code and player it grants.
func VerifySeatToken(tokenString string) (string, uuid.UUID, error) {
	keyMu.RLock()
	key := publicKey
	keyMu.RUnlock()
	if key == nil {
		return "", uuid.Nil, fmt.Errorf("auth keys not initialized")
	}

	var claims SeatClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSeatToken, err)
	}
	if !t.Valid || claims.Room == "" {
		return "", uuid.Nil, ErrInvalidSeatToken
	}

	playerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: bad sub: %v", ErrInvalidSeatToken, err)
	}
	return claims.Room, playerID, nil
}
