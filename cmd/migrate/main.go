package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/flexprice/taxsync/migrations"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger, nil)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *dryRun {
		pending, err := postgres.PendingMigrations(ctx, db, migrations.Postgres())
		if err != nil {
			logger.Fatalw("Failed to read migration status", "error", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending migrations")
			return
		}
		for _, path := range pending {
			fmt.Println("pending:", path)
		}
		return
	}

	logger.Info("Running database migrations...")
	if err := postgres.Migrate(ctx, db, migrations.Postgres(), logger); err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err)
	}
	fmt.Println("Migration process completed")
}
