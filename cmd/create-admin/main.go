package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/seed"
	"github.com/factorytrack/factory-backend/internal/service"
)

func main() {
	roleName := flag.String("role", seed.RoleSuperAdmin, "Role granted to the new user")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

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

	// ─── Initialize Service ────────────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	permRepo := repository.NewPermissionRepository(pool)
	authService := service.NewAuthService(cfg, rdb, userRepo, service.NewAuthorizationService(permRepo, log), log)
	userService := service.NewUserService(userRepo, roleRepo, authService, authService, service.NewRedisEventPublisher(rdb, log), log)

	role, err := roleRepo.GetRoleByName(ctx, *roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fmt.Printf("Error: role %q does not exist, run sync-roles first\n", *roleName)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to look up role")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("=== Create New User (%s) ===\n", role.Name)

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	fmt.Print("Enter Full Name: ")
	fullName, _ := reader.ReadString('\n')
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fmt.Println("Error: Full name is required")
		return
	}

	fmt.Print("Enter Email (optional): ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := userService.CreateUser(ctx, model.CreateUserRequest{
		Username: username,
		FullName: fullName,
		Email:    email,
		Password: password,
		RoleIDs:  []int{role.ID},
	})
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			fmt.Printf("Error: username %q is already taken\n", username)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! User '%s' created with ID %d and role %s\n", user.Username, user.ID, role.Name)
}
