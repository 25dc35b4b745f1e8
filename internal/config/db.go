package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	sslMode := envOrDefault("DB_SSLMODE", "disable")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	// Postgres may still be starting when the service boots under compose.
	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("failed to connect to database",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxRetries),
			slog.Duration("retry_in", retryInterval),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Schema is the idempotent DDL applied at startup.
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		citizen_id VARCHAR(13) UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone_number VARCHAR(15) UNIQUE NOT NULL,
		current_address TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'admin')) DEFAULT 'user',
		register_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login_date TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS provinces (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL,
		tier VARCHAR(20) NOT NULL CHECK (tier IN ('primary', 'secondary')),
		created_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS user_provinces (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		province_id BIGINT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		created_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_user_provinces_user_province UNIQUE (user_id, province_id)
	);

	CREATE INDEX IF NOT EXISTS idx_user_provinces_user_id ON user_provinces(user_id);
	CREATE INDEX IF NOT EXISTS idx_user_provinces_province_id ON user_provinces(province_id);
	CREATE INDEX IF NOT EXISTS idx_provinces_tier ON provinces(tier);
`

// Execer is the subset of pgx used for migrations.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	logger.Info("AutoMigrate applied successfully")
	return nil
}
