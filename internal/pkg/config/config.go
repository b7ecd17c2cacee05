package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=true"`

	API     APIConfig
	Store   StoreConfig
	Redis   RedisConfig
	Jobs    JobsConfig
	Archive ArchiveConfig
}

type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:8000"`
	Timeout time.Duration `env:"API_TIMEOUT,  default=30s"`
}

type StoreConfig struct {
	Backend string `env:"TOKEN_STORE,        default=file"`
	Path    string `env:"TOKEN_STORE_PATH"`
	Secret  string `env:"TOKEN_STORE_SECRET"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type JobsConfig struct {
	PollInterval     time.Duration `env:"POLL_INTERVAL,          default=2s"`
	StaleTermination bool          `env:"POLL_STALE_TERMINATION, default=false"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES,       default=5242880"`
}

type ArchiveConfig struct {
	MongoURI string `env:"ARCHIVE_MONGO_URI"`
	Database string `env:"ARCHIVE_MONGO_DB, default=audio_transcribe"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: API_BASE_URL must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: API_TIMEOUT must be positive, got %s", c.API.Timeout)
	}
	if c.Jobs.PollInterval <= 0 {
		return fmt.Errorf("config: POLL_INTERVAL must be positive, got %s", c.Jobs.PollInterval)
	}
	if c.Jobs.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive, got %d", c.Jobs.MaxUploadBytes)
	}
	switch c.Store.Backend {
	case StoreFile, StoreRedis:
	default:
		return fmt.Errorf("config: TOKEN_STORE must be %q or %q, got %q", StoreFile, StoreRedis, c.Store.Backend)
	}
	return nil
}

// Origin returns scheme://host[:port] of the API base URL; the credential
// store is scoped by it.
func (c *Config) Origin() string {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return c.API.BaseURL
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "audio-transcribe", "credentials.json")
}
