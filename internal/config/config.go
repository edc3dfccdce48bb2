package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string `toml:"environment"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	PublicBaseURL string `toml:"public_base_url"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// auth
	JWTIssuer                   string `toml:"jwt_issuer"`
	SessionTTLHours             int    `toml:"session_ttl_hours"`
	SessionsCleanupIntervalMins int    `toml:"sessions_cleanup_interval_mins"`
	LoginRateLimitAllowedPerMin int    `toml:"login_rate_limit_allowed_per_min"`

	// storage & profiles
	StorageRootPath   string   `toml:"storage_root_path"`
	AvatarMaxSizeMB   int      `toml:"avatar_max_size_mb"`
	AvatarCacheSizeMB int      `toml:"avatar_cache_size_mb"`
	AllowedOrigins    []string `toml:"allowed_origins"`
}

func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 24 * 7 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) SessionsCleanupInterval() time.Duration {
	if c.SessionsCleanupIntervalMins <= 0 {
		return time.Hour
	}
	return time.Duration(c.SessionsCleanupIntervalMins) * time.Minute
}

func (c *Config) AvatarMaxBytes() int64 {
	if c.AvatarMaxSizeMB <= 0 {
		return 5 << 20
	}
	return int64(c.AvatarMaxSizeMB) << 20
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	return cfg, nil
}

// Secrets never live in the TOML file, only in the environment (or a local .env file).
type Secrets struct {
	JWTSecret        string
	RedisPassword    string
	PostgresPassword string
	SentryDSN        string
	HoneycombEnabled bool
	HoneycombApiKey  string
}

// LoadDotEnv loads the given .env files if they exist. Variables already set in the
// environment are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func SecretsFromEnv() Secrets {
	return Secrets{
		JWTSecret:        os.Getenv("RUNLOG_JWT_SECRET"),
		RedisPassword:    os.Getenv("RUNLOG_REDIS_PASS"),
		PostgresPassword: os.Getenv("RUNLOG_DB_PASS"),
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		HoneycombEnabled: os.Getenv("HONEYCOMB_ENABLED") == "true",
		HoneycombApiKey:  os.Getenv("HONEYCOMB_API_KEY"),
	}
}
