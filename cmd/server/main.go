package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/handler"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/router"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

func main() {
	runMigrations := flag.Bool("migrate", false, "Apply pending migrations before serving")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Factory Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Migrations ────────────────────────────────────────────────────
	if *runMigrations {
		if err := database.MigrateUp(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	permRepo := repository.NewPermissionRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	events := service.NewRedisEventPublisher(rdb, log)
	authzService := service.NewAuthorizationService(permRepo, log)
	authService := service.NewAuthService(cfg, rdb, userRepo, authzService, log)
	roleService := service.NewRoleService(roleRepo, events, log)
	userService := service.NewUserService(userRepo, roleRepo, authService, authService, events, log)
	permService := service.NewPermissionService(permRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService, authzService, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, authzService, log),
		Role:       handler.NewRoleHandler(roleService, log),
		Permission: handler.NewPermissionHandler(permService, log),
		User:       handler.NewUserHandler(userService, authzService, log),
		WS:         handler.NewWSHandler(rdb, authService, log, cfg.AllowedOrigins),
		Health:     handler.NewHealthHandler(log,
			handler.HealthCheck{Name: "postgres", Pinger: pool},
			handler.HealthCheck{Name: "redis", Pinger: database.RedisPinger{Client: rdb}},
		),
	}

	// Login attempts per IP per minute.
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, authzService, handlers, loginLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
