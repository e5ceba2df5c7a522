package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okenna/dreamloom-be/internal/apperrors"
)

// Claims defines the JWT claims structure. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies bearer tokens with a process-wide secret.
// It is constructed once at startup and shared read-only across requests.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. ttl bounds every issued token's
// lifetime from the moment of issuance.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue creates a signed token for the given email, expiring ttl from now.
func (ti *TokenIssuer) Issue(email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Verify parses and validates a token string and returns the email it was
// issued for. It fails closed: bad signature, non-HMAC signing method,
// malformed structure, expiry reached, and missing subject all collapse into
// apperrors.ErrInvalidToken. A token is already invalid at exactly its
// expiry instant.
func (ti *TokenIssuer) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", apperrors.ErrInvalidToken
	}
	return claims.Subject, nil
}
