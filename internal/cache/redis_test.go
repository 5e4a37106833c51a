package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"simple key", "tags", "conduit:tags"},
		{"key with colon", "session:revoked:abc", "conduit:session:revoked:abc"},
		{"empty key", "", "conduit:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cache.namespaceKey(tt.key))
		})
	}
}

func TestCache_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	type entry struct {
		Name string `json:"name"`
	}

	require.NoError(t, c.SetJSON(ctx, "tags", []entry{{Name: "go"}}, time.Minute))
	assert.True(t, mr.Exists("conduit:tags"))

	var got []entry
	require.NoError(t, c.GetJSON(ctx, "tags", &got))
	assert.Equal(t, []entry{{Name: "go"}}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, "tags", &got), ErrMiss)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	_, err := c.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.ErrorIs(t, c.Set(ctx, "x", "y", time.Second), ErrCacheDisabled)
	assert.ErrorIs(t, c.Delete(ctx, "x"), ErrCacheDisabled)
	_, err = c.Exists(ctx, "x")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.NoError(t, c.Close())
}

func TestCache_ExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
