package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "kartsync-server"

var ErrInvalidToken = errors.New("invalid reconnect token")

// reconnectClaims names the kart a disconnected client may reclaim.
type reconnectClaims struct {
	KartID uint32 `json:"kart_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies reconnect tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. An empty secret is replaced with a random
// one, which invalidates tokens from earlier runs.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &TokenIssuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for kartID.
func (t *TokenIssuer) Issue(kartID uint32) (string, error) {
	now := t.now()
	claims := reconnectClaims{
		KartID: kartID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("kart-%d", kartID),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks a token and returns the kart it names.
func (t *TokenIssuer) Verify(tokenString string) (uint32, error) {
	token, err := jwt.ParseWithClaims(tokenString, &reconnectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*reconnectClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.KartID, nil
}
