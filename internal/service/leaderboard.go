package service

import (
	"context"
	"errors"
	"fmt"

	"runcomp/internal/leaderboard"
	"runcomp/internal/models"
	"runcomp/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidRun is returned for runs without a positive distance and time
	ErrInvalidRun = errors.New("run needs a positive distance and time")

	// ErrUserNotRanked is returned when a user has no leaderboard entry
	ErrUserNotRanked = errors.New("user has no leaderboard entry")
)

// LeaderboardService handles business logic for the leaderboard, runs and profiles
type LeaderboardService struct {
	redisRepo    *repository.RedisRepository
	postgresRepo *repository.PostgresRepository
	logger       *zap.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(
	redisRepo *repository.RedisRepository,
	postgresRepo *repository.PostgresRepository,
	logger *zap.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		redisRepo:    redisRepo,
		postgresRepo: postgresRepo,
		logger:       logger,
	}
}

// GetLeaderboardPeriod invokes the aggregation procedure for one period.
// It satisfies leaderboard.Aggregator.
func (s *LeaderboardService) GetLeaderboardPeriod(ctx context.Context, period leaderboard.Period, offset int) ([]models.LeaderboardEntry, error) {
	entries, err := s.postgresRepo.GetLeaderboardPeriod(ctx, period.String(), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to call get_leaderboard_period: %w", err)
	}
	return entries, nil
}

// UserStats returns a user's all-time entry together with their runs
func (s *LeaderboardService) UserStats(ctx context.Context, userID string) (*models.UserStatsResponse, error) {
	entries, err := s.GetLeaderboardPeriod(ctx, leaderboard.PeriodAll, 0)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.UserID != userID {
			continue
		}
		runs, err := s.ListRuns(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &models.UserStatsResponse{Entry: entry, Runs: runs}, nil
	}

	return nil, fmt.Errorf("user %s: %w", userID, ErrUserNotRanked)
}

// ListRuns returns a user's runs, newest first
func (s *LeaderboardService) ListRuns(ctx context.Context, userID string) ([]models.Run, error) {
	runs, err := s.postgresRepo.ListRuns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// AddRun logs a run for a user
func (s *LeaderboardService) AddRun(ctx context.Context, userID string, req models.RunRequest) (*models.Run, error) {
	if err := validateRun(req); err != nil {
		return nil, err
	}

	run := &models.Run{
		UserID:      userID,
		DistanceKm:  req.DistanceKm,
		TimeSeconds: req.TimeSeconds,
	}
	if err := s.postgresRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to add run: %w", err)
	}

	s.markChanged(ctx)
	return run, nil
}

// UpdateRun edits a run's distance and time
func (s *LeaderboardService) UpdateRun(ctx context.Context, runID string, req models.RunRequest) (*models.Run, error) {
	if err := validateRun(req); err != nil {
		return nil, err
	}

	if err := s.postgresRepo.UpdateRun(ctx, runID, req.DistanceKm, req.TimeSeconds); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	s.markChanged(ctx)

	run, err := s.postgresRepo.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload run: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run
func (s *LeaderboardService) DeleteRun(ctx context.Context, runID string) error {
	if err := s.postgresRepo.DeleteRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	s.markChanged(ctx)
	return nil
}

// GetProfile returns a user's profile
func (s *LeaderboardService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.postgresRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile creates or updates a user's display name and image
func (s *LeaderboardService) UpdateProfile(ctx context.Context, userID string, req models.ProfileRequest) (*models.Profile, error) {
	profile := &models.Profile{
		ID:           userID,
		DisplayName:  req.DisplayName,
		ProfileImage: req.ProfileImage,
	}
	if err := s.postgresRepo.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// Names and images show up on the leaderboard too
	s.markChanged(ctx)
	return s.GetProfile(ctx, userID)
}

// HealthCheck checks the health of both Redis and PostgreSQL
func (s *LeaderboardService) HealthCheck(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.redisRepo.Ping(ctx); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.postgresRepo.Ping(ctx); err != nil {
			return fmt.Errorf("PostgreSQL health check failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// markChanged bumps the leaderboard version so connected clients refresh.
// The write has already succeeded, so a failure here is only logged.
func (s *LeaderboardService) markChanged(ctx context.Context) {
	version, err := s.redisRepo.BumpVersion(ctx)
	if err != nil {
		s.logger.Warn("Failed to bump leaderboard version", zap.Error(err))
		return
	}
	s.logger.Debug("Leaderboard version bumped", zap.Int64("version", version))
}

func validateRun(req models.RunRequest) error {
	if req.DistanceKm <= 0 || req.TimeSeconds <= 0 {
		return fmt.Errorf("%w: distance %.2f km, time %d s", ErrInvalidRun, req.DistanceKm, req.TimeSeconds)
	}
	return nil
}
