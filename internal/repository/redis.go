package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	// VersionKey tracks the global leaderboard version for efficient change detection
	VersionKey = "leaderboard:version"
)

// RedisRepository handles all Redis operations
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// BumpVersion marks the leaderboard as changed and returns the new version
func (r *RedisRepository) BumpVersion(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, VersionKey).Result()
}

// GetLeaderboardVersion returns the current global version number
func (r *RedisRepository) GetLeaderboardVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil // Version not set yet
		}
		return 0, err
	}
	return version, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
