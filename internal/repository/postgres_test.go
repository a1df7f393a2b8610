package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"runcomp/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestRepository opens a throwaway SQLite database with the same schema
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runcomp.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.AutoMigrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRunLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &models.Run{UserID: "u1", DistanceKm: 5.2, TimeSeconds: 1560}
	require.NoError(t, repo.CreateRun(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.2, got.DistanceKm)

	require.NoError(t, repo.UpdateRun(ctx, run.ID, 6.0, 1800))
	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.DistanceKm)
	assert.Equal(t, 1800, got.TimeSeconds)

	require.NoError(t, repo.DeleteRun(ctx, run.ID))
	_, err = repo.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingRunsReportNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.UpdateRun(ctx, "nope", 1, 1), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteRun(ctx, "nope"), ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, time.October, 1, 7, 0, 0, 0, time.UTC)

	runs := []models.Run{
		{UserID: "u1", DistanceKm: 3, TimeSeconds: 900, CreatedAt: base},
		{UserID: "u1", DistanceKm: 10, TimeSeconds: 3300, CreatedAt: base.Add(48 * time.Hour)},
		{UserID: "u2", DistanceKm: 7, TimeSeconds: 2100, CreatedAt: base.Add(24 * time.Hour)},
	}
	require.NoError(t, repo.BulkInsertRuns(ctx, runs, 2))

	mine, err := repo.ListRuns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 10.0, mine[0].DistanceKm)
	assert.Equal(t, 3.0, mine[1].DistanceKm)

	all, err := repo.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := repo.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUpsertProfile(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertProfile(ctx, &models.Profile{ID: "u1", DisplayName: "Sam"}))

	image := "https://example.com/sam.png"
	require.NoError(t, repo.UpsertProfile(ctx, &models.Profile{ID: "u1", DisplayName: "Samira", ProfileImage: &image}))

	profile, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Samira", profile.DisplayName)
	require.NotNil(t, profile.ProfileImage)
	assert.Equal(t, image, *profile.ProfileImage)

	_, err = repo.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPing(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
