package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"careaudit-backend/internal/bootstrap"
	"careaudit-backend/internal/shared/config"
	"careaudit-backend/internal/shared/server"
	"careaudit-backend/internal/shared/storage/db"
	"careaudit-backend/internal/shared/telemetry"
	"careaudit-backend/internal/worker"
)

const defaultShutdownTimeout = 30 * time.Second

var errShutdownTimeout = errors.New("shutdown timeout reached")

// loop is one long-running component of the worker process.
type loop struct {
	name string
	run  func(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, db.DefaultWorkerOptions())
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	w := app.NewWorker()
	statusServer := worker.NewStatusServer(server.Addr(cfg.WorkerStatusPort), w)

	loops := []loop{
		{name: "poller", run: w.Run},
		{name: "sweeper", run: app.NewSweeper().Run},
		{name: "retention", run: app.NewPurger().Run},
		{name: "status_server", run: func(ctx context.Context) error {
			return serveUntilDone(ctx, statusServer)
		}},
	}
	if app.Redis != nil {
		pub := worker.NewRedisStatusPublisher(app.Redis, "", 0)
		loops = append(loops, loop{name: "status_publisher", run: func(ctx context.Context) error {
			return pub.RunPublisher(ctx, w.Snapshot, 0)
		}})
	}

	telemetry.Info("worker.process_started", map[string]any{
		"worker_id":   w.ID(),
		"status_addr": statusServer.Addr,
		"redis":       app.Redis != nil,
		"database":    app.DB != nil,
	})
	if err := runLoops(ctx, cfg.WorkerShutdownTimeout, loops...); err != nil {
		if errors.Is(err, errShutdownTimeout) {
			telemetry.Error("worker.shutdown_timeout", map[string]any{"worker_id": w.ID(), "timeout": cfg.WorkerShutdownTimeout.String()})
			return
		}
		log.Fatalf("worker: %v", err)
	}
	telemetry.Info("worker.process_stopped", map[string]any{"worker_id": w.ID()})
}

// runLoops runs every loop until ctx is cancelled or one of them fails. After
// that it waits up to shutdownTimeout for in-flight work to finish.
func runLoops(ctx context.Context, shutdownTimeout time.Duration, loops ...loop) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		l := l
		g.Go(func() error {
			if err := l.run(gctx); err != nil {
				telemetry.Error("worker.loop_failed", map[string]any{"loop": l.name, "error": err.Error()})
				return err
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-gctx.Done():
	}

	telemetry.Info("worker.shutdown_requested", map[string]any{"timeout": shutdownTimeout.String()})
	select {
	case err := <-done:
		return err
	case <-time.After(shutdownTimeout):
		return errShutdownTimeout
	}
}

func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
