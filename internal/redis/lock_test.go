package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 2*time.Second), mr
}

func TestWithLock(t *testing.T) {
	ctx := context.Background()

	t.Run("runs fn and releases key", func(t *testing.T) {
		locker, mr := newTestLocker(t)
		ran := false
		err := locker.WithLock(ctx, "import:abc", func(ctx context.Context) error {
			ran = true
			assert.True(t, mr.Exists("lock:import:abc"))
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.False(t, mr.Exists("lock:import:abc"))
	})

	t.Run("held key is not acquired twice", func(t *testing.T) {
		locker, _ := newTestLocker(t)
		err := locker.WithLock(ctx, "booking:1", func(ctx context.Context) error {
			return locker.WithLock(ctx, "booking:1", func(context.Context) error {
				t.Fatal("nested lock must not run")
				return nil
			})
		})
		require.ErrorIs(t, err, ErrLockNotAcquired)
	})

	t.Run("fn error is returned and lock released", func(t *testing.T) {
		locker, mr := newTestLocker(t)
		boom := errors.New("boom")
		err := locker.WithLock(ctx, "k", func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
		assert.False(t, mr.Exists("lock:k"))
	})

	t.Run("foreign token is not released", func(t *testing.T) {
		locker, mr := newTestLocker(t)
		err := locker.WithLock(ctx, "k", func(context.Context) error {
			// simulate expiry and takeover by another holder
			require.NoError(t, mr.Set("lock:k", "someone-else"))
			return nil
		})
		require.NoError(t, err)
		got, err := mr.Get("lock:k")
		require.NoError(t, err)
		assert.Equal(t, "someone-else", got)
	})
}
