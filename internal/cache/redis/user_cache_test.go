package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-graph/internal/cache"
	"social-graph/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*UserCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUserCache(client, ttl), mr
}

func TestOpen_EmptyAddr(t *testing.T) {
	_, err := Open(context.Background(), "", "", 0)
	require.Error(t, err)
}

func TestUserCache_UnreachableServer(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := NewUserCache(client, time.Minute)
	ctx := context.Background()

	_, err := c.SetIfGeneration(ctx, &domain.User{ID: "u1", Username: "alice"}, 0)
	assert.Error(t, err)

	_, err = c.Generation(ctx, "u1")
	assert.Error(t, err)

	_, err = c.Get(ctx, "u1")
	assert.Error(t, err)

	assert.NoError(t, c.Invalidate(ctx))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:id:abc", keyByID("abc"))
	assert.Equal(t, "user:gen:abc", generationKey("abc"))
}

func TestUserCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := c.Get(ctx, "u1")
	require.True(t, errors.Is(err, cache.ErrMiss))

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	stored, err := c.SetIfGeneration(ctx, &domain.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$hash",
		Bio:          "hi",
		Followings:   []string{"u2"},
		CreatedAt:    created,
		UpdatedAt:    created,
	}, gen)
	require.NoError(t, err)
	require.True(t, stored)
	assert.True(t, mr.Exists("user:id:u1"))
	assert.Equal(t, time.Minute, mr.TTL("user:id:u1"))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.Equal(t, []string{"u2"}, got.Followings)
	assert.Equal(t, []string{}, got.Followers)
	assert.Equal(t, []string{}, got.BookmarkedPosts)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestUserCache_InvalidateBumpsGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2"} {
		stored, err := c.SetIfGeneration(ctx, &domain.User{ID: id}, 0)
		require.NoError(t, err)
		require.True(t, stored)
	}

	require.NoError(t, c.Invalidate(ctx, "u1", "u2"))
	for _, id := range []string{"u1", "u2"} {
		_, err := c.Get(ctx, id)
		assert.True(t, errors.Is(err, cache.ErrMiss))
		gen, err := c.Generation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), gen)
	}
	assert.Equal(t, generationTTL, mr.TTL("user:gen:u1"))
}

func TestUserCache_StaleGenerationIsNotStored(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "u1"))

	stored, err := c.SetIfGeneration(ctx, &domain.User{ID: "u1", Username: "old"}, gen)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("user:id:u1"))

	gen, err = c.Generation(ctx, "u1")
	require.NoError(t, err)
	stored, err = c.SetIfGeneration(ctx, &domain.User{ID: "u1", Username: "new"}, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Username)
}

func TestUserCache_ZeroTTLNeverExpires(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	stored, err := c.SetIfGeneration(ctx, &domain.User{ID: "u1"}, 0)
	require.NoError(t, err)
	require.True(t, stored)
	assert.Equal(t, time.Duration(0), mr.TTL("user:id:u1"))
}
