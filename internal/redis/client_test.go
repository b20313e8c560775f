package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb, err := NewRedisClient(ctx, Options{Addr: mr.Addr()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = rdb.Close() })
		assert.Equal(t, 10, rdb.Options().PoolSize)
		assert.NoError(t, Ping(ctx, rdb))
	})

	t.Run("requires auth", func(t *testing.T) {
		mr := miniredis.RunT(t)
		mr.RequireUserAuth("locks", "s3cret")

		_, err := NewRedisClient(ctx, Options{Addr: mr.Addr(), Username: "locks", Password: "wrong"})
		assert.Error(t, err)

		rdb, err := NewRedisClient(ctx, Options{Addr: mr.Addr(), Username: "locks", Password: "s3cret", PoolSize: 3})
		require.NoError(t, err)
		t.Cleanup(func() { _ = rdb.Close() })
		assert.Equal(t, 3, rdb.Options().PoolSize)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := NewRedisClient(ctx, Options{Addr: addr})
		assert.ErrorContains(t, err, "ping redis")
	})
}
