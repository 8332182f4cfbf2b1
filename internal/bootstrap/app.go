package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/llm"
	"careaudit-backend/internal/llm/gemini"
	"careaudit-backend/internal/llm/openai"
	"careaudit-backend/internal/notify"
	"careaudit-backend/internal/retention"
	"careaudit-backend/internal/scoring"
	"careaudit-backend/internal/services/health"
	"careaudit-backend/internal/shared/auth"
	"careaudit-backend/internal/shared/config"
	"careaudit-backend/internal/shared/server"
	"careaudit-backend/internal/shared/storage/db"
	"careaudit-backend/internal/shared/storage/object"
	localstore "careaudit-backend/internal/shared/storage/object/local"
	s3store "careaudit-backend/internal/shared/storage/object/s3"
	"careaudit-backend/internal/shared/telemetry"
	"careaudit-backend/internal/source"
	"careaudit-backend/internal/tenants"
	"careaudit-backend/internal/worker"
)

// App holds shared dependencies for the API and worker binaries.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Redis  *redis.Client

	JobsRepo    jobs.Repo
	NotifyRepo  notify.Repo
	TenantStore tenants.Store
	Credentials *tenants.Resolver
	Notifier    *notify.Notifier
	Fetcher     *source.Fetcher

	JobsService   *jobs.Service
	JobsHandler   *jobs.Handler
	NotifyHandler *notify.Handler
	WorkerStatus  *worker.StatusHandler
	Health        *health.Service
}

// Build prepares shared dependencies and the API router. dbOpts selects the
// pool profile for the calling binary.
func Build(ctx context.Context, cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	keys, err := auth.NewKeys(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: sqlDB}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Redis, err = buildRedis(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		JobsHandler:   app.JobsHandler,
		NotifyHandler: app.NotifyHandler,
		WorkerStatus:  app.WorkerStatus,
		Health:        app.Health,
		Tenants:       app.Credentials,
		Keys:          keys,
	})
	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Error("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if cfg.IsDevLike() {
			telemetry.Error("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func buildServices(app *App) {
	cfg := app.Config
	if app.DB != nil {
		app.JobsRepo = &jobs.PGRepo{DB: app.DB}
		app.NotifyRepo = &notify.PGRepo{DB: app.DB}
		app.TenantStore = &tenants.PGStore{DB: app.DB}
	} else {
		app.JobsRepo = jobs.NewMemoryRepo()
		app.NotifyRepo = notify.NewMemoryRepo()
		app.TenantStore = tenants.NewMemoryStore()
	}

	app.Credentials = &tenants.Resolver{
		Store: app.TenantStore,
		Default: tenants.Credential{
			Provider: cfg.ScoringProvider,
			APIKey:   cfg.ScoringAPIKey,
			Model:    cfg.ScoringModel,
		},
	}

	var sender notify.EmailSender = notify.LogEmailSender{}
	if strings.TrimSpace(cfg.EmailAPIURL) != "" {
		sender = notify.NewHTTPEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	}
	app.Notifier = &notify.Notifier{
		Repo:          app.NotifyRepo,
		Email:         sender,
		FallbackEmail: app.Credentials.NotificationEmail,
	}
	app.Fetcher = source.NewFetcher(app.Store, cfg.SourceFetchTimeout, cfg.SourceMaxBytes)
	if cfg.SourceAllowPrivateNetworks {
		app.Fetcher.AllowPrivateNetworks()
	}

	app.JobsService = jobs.NewService(app.JobsRepo, app.Store)
	app.JobsService.MaxSourceBytes = cfg.SourceMaxBytes
	app.JobsService.AllowPrivateSources = cfg.SourceAllowPrivateNetworks
	app.JobsHandler = jobs.NewHandler(app.JobsService, cfg.SourceMaxBytes)
	app.NotifyHandler = &notify.Handler{Repo: app.NotifyRepo}

	app.WorkerStatus = &worker.StatusHandler{}
	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("database", app.DB.PingContext)
	}
	if app.Redis != nil {
		rdb := app.Redis
		app.WorkerStatus.Reader = worker.NewRedisStatusReader(rdb, "", 0)
		app.Health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
}

// NewWorker builds the job worker over the app's dependencies.
func (a *App) NewWorker() *worker.Worker {
	return worker.New(worker.Deps{
		Repo:        a.JobsRepo,
		Credentials: a.Credentials,
		Fetcher:     a.Fetcher,
		Temp:        a.Store,
		Notifier:    a.Notifier,
		Oracles:     NewOracleFactory(a.Config),
	}, worker.Options{
		PollInterval: a.Config.WorkerPollInterval,
		Scoring: scoring.Options{
			MaxOutputTokens: a.Config.ScoringMaxOutputTokens,
			Timeout:         a.Config.ScoringTimeout,
		},
	})
}

// NewSweeper builds the stale-claim sweeper.
func (a *App) NewSweeper() *worker.Sweeper {
	return &worker.Sweeper{
		Repo:       a.JobsRepo,
		Notifier:   a.Notifier,
		StaleAfter: a.Config.StaleJobAfter,
	}
}

// NewPurger builds the retention purger.
func (a *App) NewPurger() *retention.Purger {
	return &retention.Purger{
		Repo:     a.JobsRepo,
		Temp:     a.Store,
		Days:     a.Config.RetentionDays,
		Interval: a.Config.RetentionInterval,
	}
}

// NewOracleFactory returns a factory building the provider named by each
// credential, wrapped in a retrying oracle.
func NewOracleFactory(cfg config.Config) worker.OracleFactory {
	return func(ctx context.Context, cred tenants.Credential) (llm.Oracle, error) {
		model := strings.TrimSpace(cred.Model)
		if model == "" {
			model = cfg.ScoringModel
		}
		var base llm.Oracle
		switch strings.ToLower(strings.TrimSpace(cred.Provider)) {
		case "placeholder":
			return llm.PlaceholderOracle{}, nil
		case "openai":
			client, err := openai.NewClient(cred.APIKey, model, cfg.ScoringTimeout)
			if err != nil {
				return nil, err
			}
			base = client
		case "gemini", "":
			client, err := gemini.NewClient(ctx, gemini.Options{APIKey: cred.APIKey, Model: model})
			if err != nil {
				return nil, err
			}
			base = client
		default:
			return nil, fmt.Errorf("unknown scoring provider %q", cred.Provider)
		}
		return llm.NewRetryingOracle(base, cfg.ScoringMaxRetries), nil
	}
}
