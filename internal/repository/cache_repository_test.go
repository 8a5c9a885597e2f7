package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	err := repo.Get(ctx, "standings:room-1:0:teams", &dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	assert.NoError(t, repo.Set(ctx, "standings:room-1:0:teams", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "standings:room-1:*"))
	assert.NoError(t, repo.Ping(ctx))

	n, err := repo.Incr(ctx, "standings-gen:room-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Counter(ctx, "standings-gen:room-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
