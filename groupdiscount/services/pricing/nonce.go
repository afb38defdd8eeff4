package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const nonceAction = "group-discount-nonce"

// nonceClaims são as claims do token de nonce
type nonceClaims struct {
	Action string `json:"action"`
	jwt.RegisteredClaims
}

// NonceManager emite e valida os nonces exigidos pelos endpoints AJAX
type NonceManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewNonceManager cria uma nova instância de NonceManager
func NewNonceManager(secret string, ttl time.Duration, now func() time.Time) *NonceManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &NonceManager{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue emite um novo nonce
func (m *NonceManager) Issue() (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := nonceClaims{
		Action: nonceAction,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign nonce: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify valida o nonce; qualquer falha é reportada como ErrInvalidNonce
func (m *NonceManager) Verify(nonce string) error {
	if nonce == "" {
		return ErrInvalidNonce
	}

	var claims nonceClaims
	_, err := jwt.ParseWithClaims(nonce, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if claims.Action != nonceAction {
		return fmt.Errorf("%w: unexpected action %q", ErrInvalidNonce, claims.Action)
	}
	return nil
}
