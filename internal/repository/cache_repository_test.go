package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheRepository(client, zap.NewNop()), mr
}

type cachedPayload struct {
	Class   string  `json:"class"`
	Average float64 `json:"average"`
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "results:report:JSS1A", cachedPayload{Class: "JSS1A", Average: 58.5}, time.Minute))
	assert.True(t, mr.Exists("results:report:JSS1A"))

	var got cachedPayload
	require.NoError(t, repo.Get(ctx, "results:report:JSS1A", &got))
	assert.Equal(t, "JSS1A", got.Class)
	assert.Equal(t, 58.5, got.Average)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "results:report:JSS1A", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryMissAndCorruptEntry(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	var got cachedPayload
	assert.ErrorIs(t, repo.Get(ctx, "absent", &got), appErrors.ErrCacheMiss)

	require.NoError(t, mr.Set("broken", "{not json"))
	assert.ErrorIs(t, repo.Get(ctx, "broken", &got), appErrors.ErrCacheMiss)
	assert.False(t, mr.Exists("broken"))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("results:report:JSS1A", "{}"))
	require.NoError(t, mr.Set("results:report:JSS2B", "{}"))
	require.NoError(t, mr.Set("sessions:abc", "{}"))

	require.NoError(t, repo.DeleteByPattern(ctx, "results:report:*"))
	assert.False(t, mr.Exists("results:report:JSS1A"))
	assert.False(t, mr.Exists("results:report:JSS2B"))
	assert.True(t, mr.Exists("sessions:abc"))

	require.NoError(t, repo.DeleteByPattern(ctx, "nothing:*"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var got cachedPayload
	assert.ErrorIs(t, repo.Get(ctx, "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", got, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Close())
}
