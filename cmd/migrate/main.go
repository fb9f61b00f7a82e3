package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/campusledger/campusledger/internal/config"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
)

// Applies the SQL files under the migrations directory in filename order.
// Applied files are tracked in schema_migrations so reruns are safe.
func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	dir := flag.String("dir", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	pool, err := postgres.NewPool(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err, "host", cfg.Postgres.Host)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatalw("Failed to read migrations directory", "dir", *dir, "error", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if *dryRun {
		for _, name := range names {
			content, err := os.ReadFile(filepath.Join(*dir, name))
			if err != nil {
				logger.Fatalw("Failed to read migration", "file", name, "error", err)
			}
			fmt.Printf("-- %s\n%s\n", name, content)
		}
		return
	}

	db := postgres.NewClient(pool, logger)

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name       VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		logger.Fatalw("Failed to create schema_migrations table", "error", err)
	}

	applied := 0
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			logger.Fatalw("Failed to read migration", "file", name, "error", err)
		}

		err = db.WithTx(ctx, func(txCtx context.Context) error {
			tag, err := db.Querier(txCtx).Exec(txCtx,
				`INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}

			logger.Infow("applying migration", "file", name)
			if _, err := db.Querier(txCtx).Exec(txCtx, string(content)); err != nil {
				return err
			}
			applied++
			return nil
		})
		if err != nil {
			logger.Fatalw("Migration failed", "file", name, "error", err)
		}
	}

	logger.Infow("migrations complete", "applied", applied, "total", len(names))
}
