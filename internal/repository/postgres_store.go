package repository

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool  Pool
	repos Repositories
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Provinces:     NewProvinceRepository(db),
		UserProvinces: NewUserProvinceRepository(db),
	}
}

// Repos returns repositories running on the pool, outside any transaction.
func (s *PostgresStore) Repos() Repositories {
	return s.repos
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn within a single database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(mapPgError(err), "failed to commit transaction")
	}
	return nil
}
