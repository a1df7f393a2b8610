package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"runcomp/internal/config"
	"runcomp/internal/logger"
	"runcomp/internal/models"
	"runcomp/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TotalRunners  = 200
	MaxRunsEach   = 120
	BatchSize     = 500
	MinDistanceKm = 2.0
	MaxDistanceKm = 25.0
	MinPace       = 210 // 3:30/km
	MaxPace       = 480 // 8:00/km
)

var names = []string{
	"Ada", "Bo", "Cy", "Dee", "Eli", "Fay", "Gus", "Hal", "Ivy", "Jo",
	"Kit", "Lou", "Max", "Nia", "Oz", "Pia", "Quinn", "Rae", "Sol", "Tam",
}

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting seeder")

	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	postgresRepo := repository.NewPostgresRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)
	defer postgresRepo.Close()
	defer redisRepo.Close()

	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	now := time.Now().UTC()

	profiles := generateProfiles(TotalRunners, now)
	runs := generateRuns(profiles, cfg.Leaderboard.CompetitionStart, now)

	startTime := time.Now()
	if err := postgresRepo.BulkUpsertProfiles(ctx, profiles, BatchSize); err != nil {
		log.Fatal("Failed to seed profiles", zap.Error(err))
	}
	if err := postgresRepo.BulkInsertRuns(ctx, runs, BatchSize); err != nil {
		log.Fatal("Failed to seed runs", zap.Error(err))
	}
	log.Info("Inserted seed data",
		zap.Int("profiles", len(profiles)),
		zap.Int("runs", len(runs)),
		zap.Duration("took", time.Since(startTime)))

	// Tell connected clients to refetch
	version, err := redisRepo.BumpVersion(ctx)
	if err != nil {
		log.Warn("Failed to bump leaderboard version", zap.Error(err))
	}

	total, err := postgresRepo.CountRuns(ctx)
	if err != nil {
		log.Fatal("Failed to verify runs", zap.Error(err))
	}
	log.Info("Seeding completed",
		zap.Int64("total_runs", total),
		zap.Int64("version", version))
}

// generateProfiles creates runners with unique display names
func generateProfiles(count int, now time.Time) []models.Profile {
	profiles := make([]models.Profile, count)
	for i := range profiles {
		profiles[i] = models.Profile{
			ID:          uuid.NewString(),
			DisplayName: fmt.Sprintf("%s %d", names[i%len(names)], i/len(names)+1),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return profiles
}

// generateRuns spreads random runs for every runner between start and now.
// Some runners get no runs so they drop off the leaderboard.
func generateRuns(profiles []models.Profile, start, now time.Time) []models.Run {
	span := now.Sub(start)
	if span <= 0 {
		span = 24 * time.Hour
		start = now.Add(-span)
	}

	var runs []models.Run
	for _, profile := range profiles {
		for n := rand.IntN(MaxRunsEach + 1); n > 0; n-- {
			distance := MinDistanceKm + rand.Float64()*(MaxDistanceKm-MinDistanceKm)
			pace := MinPace + rand.IntN(MaxPace-MinPace+1)

			runs = append(runs, models.Run{
				ID:          uuid.NewString(),
				UserID:      profile.ID,
				DistanceKm:  float64(int(distance*100)) / 100,
				TimeSeconds: int(distance * float64(pace)),
				CreatedAt:   start.Add(time.Duration(rand.Int64N(int64(span)))),
			})
		}
	}
	return runs
}

// initPostgres initializes PostgreSQL connection
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
