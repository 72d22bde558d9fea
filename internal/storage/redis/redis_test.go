package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_service/internal/storage"
	"account_service/internal/storage/redis"
)

func newTestRepo(t *testing.T) (*redis.Repo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	return redis.NewWithClient(client), mr
}

func TestSetIfAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	ok, err := repo.SetIfAbsent(ctx, "otp:123456", "user-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetIfAbsent(ctx, "otp:123456", "user-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "existing key must not be overwritten")

	val, err := repo.Get(ctx, "otp:123456")
	require.NoError(t, err)
	assert.Equal(t, "user-1", val)
}

func TestGetDel(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SetIfAbsent(ctx, "otp:654321", "user-1", time.Minute)
	require.NoError(t, err)

	val, err := repo.GetDel(ctx, "otp:654321")
	require.NoError(t, err)
	assert.Equal(t, "user-1", val)

	_, err = repo.GetDel(ctx, "otp:654321")
	assert.ErrorIs(t, err, storage.ErrCodeNotFound)
}

func TestGetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "otp:missing")
	assert.ErrorIs(t, err, storage.ErrCodeNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SetIfAbsent(ctx, "otp:111111", "user-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "otp:111111"))
	require.NoError(t, repo.Delete(ctx, "otp:111111"))

	exists, err := repo.Exists(ctx, "otp:111111")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTTLExpiry(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SetIfAbsent(ctx, "otp:222222", "user-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = repo.Get(ctx, "otp:222222")
	assert.ErrorIs(t, err, storage.ErrCodeNotFound)
}
