package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(&Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestAcquireReleaseLock(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "lock:a", "owner-1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "lock:a", "owner-2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not take a held lock")

	require.NoError(t, c.ReleaseLock(ctx, "lock:a", "owner-2"))
	assert.True(t, mr.Exists("lock:a"), "release by a non-owner is ignored")

	require.NoError(t, c.ReleaseLock(ctx, "lock:a", "owner-1"))
	assert.False(t, mr.Exists("lock:a"))
}

func TestLockExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "lock:b", "x", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = c.AcquireLock(ctx, "lock:b", "y", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeletePattern(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	mr.Set("products:list:a", "1")
	mr.Set("products:list:b", "2")
	mr.Set("scratch:filters:u1", "{}")

	n, err := c.DeletePattern(ctx, "products:list:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("products:list:a"))
	assert.True(t, mr.Exists("scratch:filters:u1"))

	n, err = c.DeletePattern(ctx, "nothing:*")
	require.NoError(t, err)
	assert.Zero(t, n)
}
