package main

// Apply or inspect schema migrations:
//   go run ./cmd/migrate [up|down|redo|status|version]

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"careaudit-backend/internal/shared/config"
	"careaudit-backend/internal/shared/storage/db"
	"careaudit-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()

	command := db.MigrateUp
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load(), command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		stop()
		telemetry.Sync()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}

func run(ctx context.Context, cfg config.Config, command string) error {
	names, err := db.MigrationNames()
	if err != nil {
		return err
	}
	telemetry.Info("migrate.start", map[string]any{"command": command, "embedded": len(names), "env": cfg.Env})

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer pool.Close()
	return db.Migrate(ctx, pool, command)
}
