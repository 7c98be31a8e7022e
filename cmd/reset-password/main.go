package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/service"
)

func main() {
	username := flag.String("username", "", "User whose password is reset")
	flag.Parse()
	if *username == "" {
		fmt.Println("Usage: reset-password -username <name>")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Sessions live in Redis and are revoked with the reset.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	permRepo := repository.NewPermissionRepository(pool)
	authService := service.NewAuthService(cfg, rdb, userRepo, service.NewAuthorizationService(permRepo, log), log)
	userService := service.NewUserService(userRepo, roleRepo, authService, authService, service.NewRedisEventPublisher(rdb, log), log)

	user, err := userService.GetUserByUsername(ctx, *username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fmt.Printf("Error: user %q not found\n", *username)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to look up user")
	}

	fmt.Printf("New password for %s: ", user.Username)
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if string(first) != string(second) {
		fmt.Println("Error: passwords do not match")
		os.Exit(1)
	}
	if len(first) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	if err := userService.ResetPassword(ctx, user.ID, string(first)); err != nil {
		log.Fatal().Err(err).Msg("Failed to reset password")
	}
	fmt.Printf("Success! Password of '%s' reset, all sessions ended.\n", user.Username)
}
