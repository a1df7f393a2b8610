package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"runcomp/internal/api/handlers"
	"runcomp/internal/config"
	"runcomp/internal/leaderboard"
	"runcomp/internal/logger"
	"runcomp/internal/repository"
	"runcomp/internal/service"
	"runcomp/internal/session"
	"runcomp/internal/websocket"
	"runcomp/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, envFileFound, err := config.Load()
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

	if !envFileFound {
		log.Info("No .env file found, using environment variables")
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Connected to Redis")

	// Initialize repositories
	postgresRepo := repository.NewPostgresRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	if cfg.Database.AutoMigrate {
		if err := postgresRepo.AutoMigrate(); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("Database migrations completed")
	}

	leaderboardService := service.NewLeaderboardService(redisRepo, postgresRepo, log.Named("service"))

	// Background context for the hub, the session janitor and prefetches
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prefetch pool shared by every session's controller
	lb := cfg.Leaderboard
	prefetchPool := worker.NewWorkerPool(lb.PrefetchWorkers, lb.PrefetchQueue, lb.PrefetchTimeout, log.Named("prefetch"))
	prefetchPool.Start()

	controllerLog := log.Named("leaderboard")
	sessions := session.NewRegistry(func() *leaderboard.Controller {
		return leaderboard.NewController(leaderboardService,
			leaderboard.WithStartDate(lb.CompetitionStart),
			leaderboard.WithFreshness(lb.Freshness),
			leaderboard.WithScheduler(prefetchPool),
			leaderboard.WithLogger(controllerLog),
			leaderboard.WithBaseContext(ctx),
		)
	}, lb.SessionIdleTTL, log.Named("session"))
	janitorDone := sessions.StartJanitor(ctx, time.Minute)

	// Initialize WebSocket Hub
	hub := websocket.NewHub(redisRepo, log.Named("websocket"))
	go hub.Run(ctx)

	leaderboardHandler := handlers.NewLeaderboardHandler(sessions, leaderboardService, hub)
	runHandler := handlers.NewRunHandler(leaderboardService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "RunComp Leaderboard",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, " + handlers.SessionHeader,
		ExposeHeaders: handlers.SessionHeader,
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
	api.Post("/leaderboard/period", leaderboardHandler.SelectPeriod)
	api.Post("/leaderboard/navigate", leaderboardHandler.Navigate)
	api.Get("/users/:userId", leaderboardHandler.UserStats)
	api.Get("/health", leaderboardHandler.HealthCheck)

	api.Get("/users/:userId/runs", runHandler.ListRuns)
	api.Post("/users/:userId/runs", runHandler.AddRun)
	api.Put("/runs/:runId", runHandler.UpdateRun)
	api.Delete("/runs/:runId", runHandler.DeleteRun)
	api.Get("/users/:userId/profile", runHandler.GetProfile)
	api.Put("/users/:userId/profile", runHandler.UpdateProfile)

	// WebSocket route with upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(leaderboardHandler.HandleWebSocket))

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "RunComp Leaderboard API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/leaderboard",
				"POST /api/v1/leaderboard/period",
				"POST /api/v1/leaderboard/navigate",
				"GET /api/v1/users/:userId",
				"GET|POST /api/v1/users/:userId/runs",
				"PUT|DELETE /api/v1/runs/:runId",
				"GET|PUT /api/v1/users/:userId/profile",
				"GET /api/v1/health",
				"WS /ws (WebSocket)",
			},
			"websocket_clients": hub.GetClientCount(),
			"prefetch":          prefetchPool.GetMetrics(),
		})
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("Shutting down server")

		// First, stop accepting new HTTP requests
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn("Server forced to shutdown", zap.Error(err))
		}

		// Second, stop the hub and janitor and cancel in-flight prefetches.
		// Controllers are not waited on: queued prefetches that never ran
		// would keep them busy forever.
		cancel()
		<-janitorDone

		if err := prefetchPool.Shutdown(5 * time.Second); err != nil {
			log.Warn("Prefetch pool shutdown error", zap.Error(err))
		}

		// Third, close database connections
		if err := postgresRepo.Close(); err != nil {
			log.Warn("Error closing PostgreSQL", zap.Error(err))
		}
		if err := redisRepo.Close(); err != nil {
			log.Warn("Error closing Redis", zap.Error(err))
		}

		log.Info("Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Info("Server starting", zap.Int("port", port))
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Enough connections for every prefetch worker plus request traffic
	maxOpen := cfg.Leaderboard.PrefetchWorkers + 10
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	log.Info("PostgreSQL connection pool configured",
		zap.Int("max_open", maxOpen),
		zap.Int("max_idle", 5))

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// customErrorHandler handles errors globally
func customErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   "Request failed",
			"message": err.Error(),
		})
	}
}
