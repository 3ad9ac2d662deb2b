package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	c := NewMemoryCache(time.Minute)

	_, ok, err := c.Get(ctx, "role=")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "role=", []byte("[]")))
	require.NoError(t, c.Set(ctx, "role=teacher", []byte(`[{"id":"p1"}]`)))
	val, ok, err := c.Get(ctx, "role=teacher")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, string(val))
	assert.Equal(t, 2, c.Len())

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "role=teacher")
	assert.False(t, ok, "expired")

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_NoTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	require.NoError(t, c.Set(ctx, "k", []byte("v")))

	core.NowFunc = func() time.Time { return time.Now().UTC().Add(24 * time.Hour) }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
