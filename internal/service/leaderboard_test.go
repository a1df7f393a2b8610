package service

import (
	"context"
	"path/filepath"
	"testing"

	"runcomp/internal/models"
	"runcomp/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*LeaderboardService, *repository.RedisRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "service.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	postgresRepo := repository.NewPostgresRepository(db)
	require.NoError(t, postgresRepo.AutoMigrate())
	t.Cleanup(func() { postgresRepo.Close() })

	srv := miniredis.RunT(t)
	redisRepo := repository.NewRedisRepository(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { redisRepo.Close() })

	return NewLeaderboardService(redisRepo, postgresRepo, nil), redisRepo
}

func TestAddRunBumpsVersion(t *testing.T) {
	svc, redisRepo := newTestService(t)
	ctx := context.Background()

	run, err := svc.AddRun(ctx, "u1", models.RunRequest{DistanceKm: 5, TimeSeconds: 1500})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 300.0, run.Pace())

	version, err := redisRepo.GetLeaderboardVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	runs, err := svc.ListRuns(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAddRunRejectsNonPositiveValues(t *testing.T) {
	svc, redisRepo := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddRun(ctx, "u1", models.RunRequest{DistanceKm: 0, TimeSeconds: 1500})
	assert.ErrorIs(t, err, ErrInvalidRun)
	_, err = svc.AddRun(ctx, "u1", models.RunRequest{DistanceKm: 3, TimeSeconds: -1})
	assert.ErrorIs(t, err, ErrInvalidRun)

	version, err := redisRepo.GetLeaderboardVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestUpdateAndDeleteRun(t *testing.T) {
	svc, redisRepo := newTestService(t)
	ctx := context.Background()

	run, err := svc.AddRun(ctx, "u1", models.RunRequest{DistanceKm: 5, TimeSeconds: 1500})
	require.NoError(t, err)

	updated, err := svc.UpdateRun(ctx, run.ID, models.RunRequest{DistanceKm: 10, TimeSeconds: 3000})
	require.NoError(t, err)
	assert.Equal(t, 10.0, updated.DistanceKm)

	require.NoError(t, svc.DeleteRun(ctx, run.ID))
	assert.ErrorIs(t, svc.DeleteRun(ctx, run.ID), repository.ErrNotFound)

	version, err := redisRepo.GetLeaderboardVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	profile, err := svc.UpdateProfile(ctx, "u1", models.ProfileRequest{DisplayName: "Robin"})
	require.NoError(t, err)
	assert.Equal(t, "Robin", profile.DisplayName)
	assert.Nil(t, profile.ProfileImage)
}

func TestHealthCheck(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}
