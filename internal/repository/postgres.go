package repository

import (
	"context"
	"errors"
	"fmt"

	"runcomp/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// leaderboardProcedure is the hosted aggregation function
const leaderboardProcedure = "SELECT * FROM get_leaderboard_period(?, ?)"

// PostgresRepository handles all PostgreSQL operations
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a new Postgres repository
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetLeaderboardPeriod calls the get_leaderboard_period procedure
func (r *PostgresRepository) GetLeaderboardPeriod(ctx context.Context, period string, offset int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := r.db.WithContext(ctx).Raw(leaderboardProcedure, period, offset).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetProfile retrieves a profile by user id
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or updates a profile
// Uses ON CONFLICT to handle upserts efficiently
func (r *PostgresRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "profile_image", "updated_at"}),
	}).Create(profile).Error
}

// ListRuns returns runs newest first, for one user or for everyone when
// userID is empty
func (r *PostgresRepository) ListRuns(ctx context.Context, userID string) ([]models.Run, error) {
	query := r.db.WithContext(ctx).Model(&models.Run{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var runs []models.Run
	err := query.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

// GetRun retrieves a run by id
func (r *PostgresRepository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return &run, nil
}

// CreateRun inserts a run, assigning an id if it has none
func (r *PostgresRepository) CreateRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// UpdateRun changes the distance and time of a run
func (r *PostgresRepository) UpdateRun(ctx context.Context, runID string, distanceKm float64, timeSeconds int) error {
	result := r.db.WithContext(ctx).Model(&models.Run{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"distance_km":  distanceKm,
		"time_seconds": timeSeconds,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// DeleteRun removes a run
func (r *PostgresRepository) DeleteRun(ctx context.Context, runID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", runID).Delete(&models.Run{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// BulkInsertRuns efficiently inserts multiple runs
func (r *PostgresRepository) BulkInsertRuns(ctx context.Context, runs []models.Run, batchSize int) error {
	for i := range runs {
		if runs[i].ID == "" {
			runs[i].ID = uuid.NewString()
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(runs, batchSize).Error
}

// BulkUpsertProfiles efficiently writes multiple profiles
func (r *PostgresRepository) BulkUpsertProfiles(ctx context.Context, profiles []models.Profile, batchSize int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "profile_image", "updated_at"}),
	}).CreateInBatches(profiles, batchSize).Error
}

// CountRuns returns the total number of runs
func (r *PostgresRepository) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Run{}).Count(&count).Error
	return count, err
}

// Ping checks if database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates the profiles and runs tables. The aggregation
// procedure is owned by the hosted backend and is not managed here.
func (r *PostgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.Profile{}, &models.Run{})
}
