// Package auth issues and verifies the HS256 bearer tokens that chat clients
// present to the backend.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of tokens minted without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// ErrNoSecret is returned when a Service is built without a signing secret.
var ErrNoSecret = errors.New("jwt secret is required")

// Principal identifies the caller behind a verified token.
type Principal struct {
	UserID   int64
	Username string
}

// Claims is the token payload.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens with a shared secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService returns a Service for the given secret.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Service{secret: []byte(secret), now: time.Now}, nil
}

// Issue mints a signed token for p. A zero ttl means DefaultTTL.
func (s *Service) Issue(p Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now()
	claims := Claims{
		UserID:   p.UserID,
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and returns the caller it was issued for.
func (s *Service) Verify(tokenStr string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("missing user_id claim")
	}

	return &Principal{UserID: claims.UserID, Username: claims.Username}, nil
}
