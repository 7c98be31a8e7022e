package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/service"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the changes without writing them")
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

	// Events reach running servers only when Redis is available.
	var events service.EventPublisher = service.NoopPublisher{}
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, change events will not be published")
	} else {
		defer rdb.Close()
		events = service.NewRedisEventPublisher(rdb, log)
	}

	// ─── Initialize Service ────────────────────────────────────────────
	fixtures := service.NewFixtureService(
		repository.NewRoleRepository(pool),
		repository.NewPermissionRepository(pool),
		events,
		log,
	)

	fmt.Println("=== Sync System Roles ===")
	if *dryRun {
		fmt.Println("Dry run: nothing will be written.")
	}

	report, err := fixtures.Sync(ctx, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sync system roles")
	}

	if n := len(report.MissingPermissions); n > 0 {
		verb := "Created"
		if report.DryRun {
			verb = "Would create"
		}
		fmt.Printf("\n%s %d catalog permissions:\n  %s\n", verb, n, strings.Join(report.MissingPermissions, "\n  "))
	}

	fmt.Println()
	for _, r := range report.Roles {
		state := "unchanged"
		switch {
		case r.Created:
			state = "created"
		case r.Changed():
			state = "updated"
		}
		fmt.Printf("%-12s %-9s +%d -%d =%d\n", r.Role, state, len(r.Added), len(r.Removed), r.Unchanged)
		for _, k := range r.Added {
			fmt.Printf("    + %s\n", k)
		}
		for _, k := range r.Removed {
			fmt.Printf("    - %s\n", k)
		}
	}

	if !report.DryRun {
		fmt.Println("\nSuccess! System roles match the fixtures.")
	}
}
