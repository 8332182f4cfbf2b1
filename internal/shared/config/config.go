package config

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	DatabaseURL     string   `env:"DATABASE_URL"`
	JWTSecret       string   `env:"JWT_SECRET"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`

	ScoringProvider        string        `env:"SCORING_PROVIDER" envDefault:"gemini"`
	ScoringModel           string        `env:"SCORING_MODEL" envDefault:"gemini-2.5-flash"`
	ScoringAPIKey          string        `env:"SCORING_API_KEY"`
	ScoringMaxOutputTokens int32         `env:"SCORING_MAX_OUTPUT_TOKENS" envDefault:"4096"`
	ScoringTimeout         time.Duration `env:"SCORING_TIMEOUT" envDefault:"90s"`
	ScoringMaxRetries      int           `env:"SCORING_MAX_RETRIES" envDefault:"2"`

	WorkerPollInterval    time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
	WorkerStatusPort      string        `env:"WORKER_STATUS_PORT" envDefault:"8081"`
	WorkerShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	StaleJobAfter         time.Duration `env:"STALE_JOB_AFTER" envDefault:"30m"`

	RetentionDays     int           `env:"RETENTION_DAYS" envDefault:"90"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"6h"`

	RedisURL string `env:"REDIS_URL"`

	EmailAPIURL string `env:"EMAIL_API_URL"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"audits@careaudit.local"`

	SourceFetchTimeout time.Duration `env:"SOURCE_FETCH_TIMEOUT" envDefault:"60s"`
	SourceMaxBytes     int64         `env:"SOURCE_MAX_BYTES" envDefault:"26214400"`
	// Lets URL sources reach loopback and private networks. Dev only.
	SourceAllowPrivateNetworks bool `env:"SOURCE_ALLOW_PRIVATE_NETWORKS" envDefault:"false"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Printf("config: parse env: %v", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.ScoringProvider = normalizeProvider(cfg.ScoringProvider)
	cfg.CORSAllowOrigin = splitAndTrim(strings.Join(cfg.CORSAllowOrigin, ","))

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	return cfg
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "placeholder", "none":
		return "placeholder"
	default:
		return "gemini"
	}
}
