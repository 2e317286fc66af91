package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorageDriverFile  = "file"
	StorageDriverRedis = "redis"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Storage StorageConfig
	Stub    StubConfig
}

// BackendConfig points the client at the auth backend.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_BASE_URL, default=http://localhost:8080"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT,  default=10s"`
}

// StorageConfig selects the credential store driver.
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER, default=file"`
	Dir    string `env:"STORAGE_DIR,    default=.ventamovil"`

	Redis RedisConfig
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// StubConfig configures the development auth server. An empty Mongo URI
// selects the seeded in-memory account directory.
type StubConfig struct {
	Port      string        `env:"STUB_PORT,       default=8080"`
	JWTSecret string        `env:"STUB_JWT_SECRET, default=dev-secret"`
	TokenTTL  time.Duration `env:"STUB_TOKEN_TTL,  default=24h"`

	Mongo MongoConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=ventamovil"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Storage.Driver != StorageDriverFile && cfg.Storage.Driver != StorageDriverRedis {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return &cfg, nil
}
