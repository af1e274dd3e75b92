package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	store := NewTokenStore("0123456789abcdef", time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, 42)
	require.NoError(t, err)

	userID, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.NoError(t, store.Destroy(ctx, token))
}

func TestTokenStore_Rejects(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore("0123456789abcdef", time.Hour)

	token, err := store.Create(ctx, 42)
	require.NoError(t, err)

	other := NewTokenStore("fedcba9876543210", time.Hour)
	_, err = other.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession, "wrong secret")

	_, err = store.Lookup(ctx, token+"x")
	assert.ErrorIs(t, err, ErrNoSession, "tampered signature")

	_, err = store.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession, "empty token")

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession, "expired")
}
