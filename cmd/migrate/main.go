package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"founders-chat/config"
	"founders-chat/migrations"
	"founders-chat/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usage = `
Founders Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all pending migrations
  down        Roll back all migrations
  status      Show connection status and applied migrations
  reset       Roll back and re-apply all migrations (DANGEROUS)

Flags:
  -timeout duration   Overall timeout for the command (default 1m)
  -yes                Skip the confirmation delay for reset

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go reset -yes
`

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Overall timeout for the command")
	yes := flag.Bool("yes", false, "Skip the confirmation delay for reset")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := config.LoadConfig()
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(ctx, pool)
	case "down":
		runMigrationsDown(ctx, pool)
	case "status":
		showStatus(ctx, pool)
	case "reset":
		runReset(ctx, pool, *yes)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🚀 Running migrations UP...")

	if err := database.MigrateUp(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("⬇️  Rolling back migrations...")

	if err := database.MigrateDown(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Rollback completed successfully!")
}

func showStatus(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	applied, err := database.AppliedMigrations(ctx, pool)
	if err != nil {
		log.Fatalf("❌ Failed to read migration state: %v", err)
	}
	if len(applied) == 0 {
		log.Println("⚠️  No migrations applied")
		return
	}
	for _, version := range applied {
		log.Printf("✅ Migration %s applied", version)
	}
}

func runReset(ctx context.Context, pool *pgxpool.Pool, skipDelay bool) {
	log.Println("⚠️  WARNING: This will DROP all chat tables and re-run migrations!")
	if !skipDelay {
		log.Println("⚠️  Press Ctrl+C within 5 seconds to cancel...")
		time.Sleep(5 * time.Second)
	}

	runMigrationsDown(ctx, pool)
	runMigrationsUp(ctx, pool)

	log.Println("✅ Database reset completed!")
}
