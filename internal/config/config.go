// Package config loads the lobby settings from the environment, optionally
// preloaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every runtime setting.
type Config struct {
	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8443"`
	WorkerPoolSize int           `envconfig:"WORKER_POOL_SIZE" default:"256" validate:"min=1"`
	MaxConnections int           `envconfig:"MAX_CONNECTIONS" default:"100000" validate:"min=1"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"10s" validate:"min=0"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s" validate:"min=0"`
	SendBuffer     int           `envconfig:"SEND_BUFFER" default:"128" validate:"min=1"`
	EventQueueSize int           `envconfig:"EVENT_QUEUE_SIZE" default:"1024" validate:"min=1"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m" validate:"min=0"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres" validate:"oneof=postgres memory"`
	DatabaseURL string `envconfig:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	Migrate     bool   `envconfig:"MIGRATE" default:"true"`
	SeedUsers   bool   `envconfig:"SEED_USERS" default:"true"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	InviteCooldown time.Duration `envconfig:"INVITE_COOLDOWN" default:"0s" validate:"min=0"`
	NATSURL        string        `envconfig:"NATS_URL"`
	ServerName     string        `envconfig:"SERVER_NAME"`

	SSLCertPath string `envconfig:"SSL_CERT_PATH" validate:"required_with=SSLKeyPath"`
	SSLKeyPath  string `envconfig:"SSL_KEY_PATH" validate:"required_with=SSLCertPath"`
	StaticDir   string `envconfig:"STATIC_DIR"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
}

var validate = validator.New()

// Load reads a .env file if present, then the environment, and validates
// the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads and validates the environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if cfg.ServerName == "" {
		cfg.ServerName, _ = os.Hostname()
		if cfg.ServerName == "" {
			cfg.ServerName = "lobby-1"
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// TLS reports whether both certificate paths are set.
func (c Config) TLS() bool {
	return c.SSLCertPath != "" && c.SSLKeyPath != ""
}
