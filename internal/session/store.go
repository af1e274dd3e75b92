package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned when a token is unknown, expired or forged.
var ErrNoSession = errors.New("no valid session")

// Store issues and resolves opaque session tokens carried in a cookie.
type Store interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Destroy(ctx context.Context, token string) error
}
