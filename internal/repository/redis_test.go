package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	repo := NewRedisRepository(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { repo.Close() })
	return repo, srv
}

func TestVersionStartsAtZero(t *testing.T) {
	repo, _ := newTestRedis(t)

	version, err := repo.GetLeaderboardVersion(context.Background())
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestBumpVersion(t *testing.T) {
	repo, srv := newTestRedis(t)
	ctx := context.Background()

	v1, err := repo.BumpVersion(ctx)
	require.NoError(t, err)
	v2, err := repo.BumpVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)

	got, err := repo.GetLeaderboardVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	stored, err := srv.Get(VersionKey)
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestPingReportsServerErrors(t *testing.T) {
	repo, srv := newTestRedis(t)
	require.NoError(t, repo.Ping(context.Background()))

	srv.SetError("LOADING dataset in memory")
	assert.Error(t, repo.Ping(context.Background()))
}
