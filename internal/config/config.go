package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

const (
	defaultServerPort          = "8080"
	defaultAccessTokenMinutes  = 60
	defaultRefreshTokenMinutes = 60 * 24 * 7
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultRefreshSecretSuffix = ":refresh"
)

// Config aggregates application configuration values.
type Config struct {
	ServerPort        string
	GinMode           string
	StorageDriver     string
	DB                *DBConfig
	JWT               JWTConfig
	Log               LogConfig
	InitialAdminPhone string
	BcryptCost        int
}

// JWTConfig holds token signing parameters
type JWTConfig struct {
	SecretKey            string
	RefreshSecretKey     string
	AccessExpireMinutes  int64
	RefreshExpireMinutes int64
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string
	Format string // json|text
}

// Load reads configuration from environment variables. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:        envOrDefault("SERVER_PORT", defaultServerPort),
		GinMode:           os.Getenv("GIN_MODE"),
		StorageDriver:     strings.ToLower(envOrDefault("STORAGE_DRIVER", StorageDriverPostgres)),
		InitialAdminPhone: os.Getenv("INITIAL_ADMIN_PHONE"),
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", defaultLogLevel),
			Format: envOrDefault("LOG_FORMAT", defaultLogFormat),
		},
	}

	cfg.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY not set in environment")
	}
	cfg.JWT.RefreshSecretKey = envOrDefault("JWT_REFRESH_SECRET_KEY", cfg.JWT.SecretKey+defaultRefreshSecretSuffix)

	var err error
	if cfg.JWT.AccessExpireMinutes, err = envInt64("ACCESS_TOKEN_EXPIRE_MINUTES", defaultAccessTokenMinutes); err != nil {
		return nil, err
	}
	if cfg.JWT.RefreshExpireMinutes, err = envInt64("REFRESH_TOKEN_EXPIRE_MINUTES", defaultRefreshTokenMinutes); err != nil {
		return nil, err
	}

	cost, err := envInt64("BCRYPT_COST", int64(bcrypt.DefaultCost))
	if err != nil {
		return nil, err
	}
	if cost < int64(bcrypt.MinCost) || cost > int64(bcrypt.MaxCost) {
		return nil, errors.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	cfg.BcryptCost = int(cost)

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DB, err = LoadDBConfig(); err != nil {
			return nil, err
		}
	case StorageDriverMemory:
	default:
		return nil, errors.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return v, nil
}
