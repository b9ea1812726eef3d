package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the FAQ responder.
type Config struct {
	BindAddr           string        `env:"APP_BIND_ADDR" envDefault:":5003"`
	ShutdownTimeout    time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SessionIdleTimeout time.Duration `env:"APP_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	MetricsNamespace   string        `env:"APP_METRICS_NAMESPACE" envDefault:"gadgetdesk"`
	AllowAnyOrigin     bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	CatalogPath string `env:"CATALOG_PATH"`
	RandomSeed  uint64 `env:"RANDOM_SEED" envDefault:"0"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"gadgetdesk"`

	HistoryMaxTurns        int `env:"HISTORY_MAX_TURNS" envDefault:"0"`
	BackendConnectAttempts int `env:"BACKEND_CONNECT_ATTEMPTS" envDefault:"3"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return LoadFrom(environ)
}

// LoadFrom builds a Config from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	trimmed := make(map[string]string, len(environ))
	for k, v := range environ {
		if v = strings.TrimSpace(v); v != "" {
			trimmed[k] = v
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: trimmed}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BindAddr) == "" {
		return fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.SessionIdleTimeout < time.Second {
		return fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be at least 1s")
	}
	if c.HistoryMaxTurns < 0 {
		return fmt.Errorf("HISTORY_MAX_TURNS must be >= 0")
	}
	if c.BackendConnectAttempts < 1 {
		return fmt.Errorf("BACKEND_CONNECT_ATTEMPTS must be at least 1")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must be >= 0")
	}
	if c.DatabaseURL != "" && c.RedisAddr != "" {
		return fmt.Errorf("DATABASE_URL and REDIS_ADDR are mutually exclusive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}
