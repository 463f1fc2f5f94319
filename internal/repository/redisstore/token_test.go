package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, "redis://"+srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	store := NewTokenStore(client)

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, srv.Exists(revokedPrefix+"jti-1"))

	srv.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_ExpiredTokenIsNotStored(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, "redis://"+srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	store := NewTokenStore(client)
	require.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	assert.False(t, srv.Exists(revokedPrefix+"old"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://nope")
	assert.Error(t, err)
}
