package repository

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

type cachedCells struct {
	Codes []int64 `json:"codes"`
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil)
	var dest cachedCells

	assert.ErrorIs(t, repo.Get(context.Background(), "availability:x", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "availability:x", cachedCells{}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "availability:*"))
}

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "availability:cells:a", cachedCells{Codes: []int64{17040960}}, time.Minute))

	var got cachedCells
	require.NoError(t, repo.Get(ctx, "availability:cells:a", &got))
	assert.Equal(t, []int64{17040960}, got.Codes)

	assert.ErrorIs(t, repo.Get(ctx, "availability:cells:b", &got), appErrors.ErrCacheMiss)
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "availability:cells:a", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "availability:cells:b", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "session:a", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "availability:*"))

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "availability:cells:a", &v), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "session:a", &v))
	assert.Equal(t, 3, v)
}
