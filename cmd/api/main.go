package main

import (
	"context"
	"log"

	"careaudit-backend/internal/bootstrap"
	"careaudit-backend/internal/shared/config"
	"careaudit-backend/internal/shared/server"
	"careaudit-backend/internal/shared/storage/db"
	"careaudit-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	defer telemetry.Sync()

	app, err := bootstrap.Build(context.Background(), cfg, db.DefaultServerOptions())
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.started", map[string]any{"addr": addr, "env": cfg.Env, "database": app.DB != nil})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
