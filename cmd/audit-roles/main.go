package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/service"
)

func main() {
	asJSON := flag.Bool("json", false, "Print violations as JSON")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}

	fixtures := service.NewFixtureService(
		repository.NewRoleRepository(pool),
		repository.NewPermissionRepository(pool),
		service.NoopPublisher{},
		log,
	)

	violations, err := fixtures.Audit(ctx)
	pool.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to audit roles")
	}

	if *asJSON {
		_ = json.NewEncoder(os.Stdout).Encode(violations)
	} else if len(violations) == 0 {
		fmt.Println("OK: roles satisfy every fixture rule.")
	} else {
		fmt.Printf("%d violation(s):\n", len(violations))
		for _, v := range violations {
			fmt.Println("  " + v.String())
		}
	}

	if len(violations) > 0 {
		os.Exit(1)
	}
}
