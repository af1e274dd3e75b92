package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "disaster-catalog"

// TokenStore keeps the identity in an HS256-signed JWT, so no server side
// state is needed. Destroy cannot revoke a token; logout clears the cookie.
type TokenStore struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenStore(secret string, ttl time.Duration) *TokenStore {
	return &TokenStore{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenStore) Create(_ context.Context, userID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *TokenStore) Lookup(_ context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNoSession
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrNoSession, claims.Subject)
	}
	return userID, nil
}

func (s *TokenStore) Destroy(context.Context, string) error {
	return nil
}
