package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/auth-service/pkg/errors"
)

func newTestRepo(t *testing.T) *RefreshTokenRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRefreshTokenRepository(client)
}

func TestRefreshTokenRepository_SaveAndGetByHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, "u-1234", "hash-abc", expiresAt))

	rec, err := repo.GetByHash(ctx, "hash-abc")
	require.NoError(t, err)
	assert.Equal(t, "u-1234", rec.UserID)
	assert.Equal(t, "hash-abc", rec.TokenHash)
	assert.True(t, rec.ExpiresAt.Equal(expiresAt))
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	rec, err := repo.GetByHash(context.Background(), "unknown-hash")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefreshTokenRepository_Save_ReplacesPreviousToken(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)

	require.NoError(t, repo.Save(ctx, "u-1234", "hash-first", expiresAt))
	require.NoError(t, repo.Save(ctx, "u-1234", "hash-second", expiresAt))

	// The earlier token must stop resolving once a new one is saved.
	rec, err := repo.GetByHash(ctx, "hash-first")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	rec, err = repo.GetByHash(ctx, "hash-second")
	require.NoError(t, err)
	assert.Equal(t, "u-1234", rec.UserID)
}

func TestRefreshTokenRepository_DeleteByHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, "u-1234", "hash-abc", expiresAt))

	require.NoError(t, repo.DeleteByHash(ctx, "hash-abc"))

	rec, err := repo.GetByHash(ctx, "hash-abc")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefreshTokenRepository_DeleteByHash_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, "u-1234", "hash-abc", expiresAt))

	require.NoError(t, repo.DeleteByHash(ctx, "hash-abc"))
	assert.NoError(t, repo.DeleteByHash(ctx, "hash-abc"))
	assert.NoError(t, repo.DeleteByHash(ctx, "never-existed"))
}

func TestRefreshTokenRepository_TokensExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.Save(ctx, "u-1234", "hash-abc", expiresAt))

	mr.FastForward(2 * time.Minute)

	rec, err := repo.GetByHash(ctx, "hash-abc")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
