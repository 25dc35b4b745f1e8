// Package repository holds the persistence contracts and their PostgreSQL and
// in-memory implementations.
package repository

import (
	"context"
	"fmt"
	"time"

	"province_quota/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// Unique constraint names. The in-memory store reports the same names.
const (
	ConstraintUserCitizenID    = "users_citizen_id_key"
	ConstraintUserEmail        = "users_email_key"
	ConstraintUserPhoneNumber  = "users_phone_number_key"
	ConstraintProvinceName     = "provinces_name_key"
	ConstraintUserProvinceLink = "uq_user_provinces_user_province"
)

const pgUniqueViolation = "23505"

// ErrDuplicateKey is matched by every DuplicateKeyError.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError reports which unique constraint rejected a write.
type DuplicateKeyError struct {
	Constraint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key violates unique constraint %q", e.Constraint)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// DuplicateConstraint returns the violated constraint name if err is a DuplicateKeyError.
func DuplicateConstraint(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Constraint, true
	}
	return "", false
}

// mapPgError converts a unique violation into a DuplicateKeyError.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateKeyError{Constraint: pgErr.ConstraintName}
	}
	return err
}

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can open transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByCitizenID(ctx context.Context, citizenID string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	// LockByID takes a row lock held until the surrounding transaction ends.
	LockByID(ctx context.Context, id int64) (bool, error)
}

// ProvinceRepository defines operations for the province catalog
type ProvinceRepository interface {
	List(ctx context.Context) ([]model.Province, error)
	ListByTier(ctx context.Context, tier model.ProvinceTier) ([]model.Province, error)
	FindByID(ctx context.Context, id int64) (*model.Province, error)
	FindByName(ctx context.Context, name string) (*model.Province, error)
	// LockByID takes an exclusive row lock; ShareLockByID a shared one.
	LockByID(ctx context.Context, id int64) (bool, error)
	ShareLockByID(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, province *model.Province) error
	Update(ctx context.Context, province *model.Province) error
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// UserProvinceRepository defines operations on user to target-province links
type UserProvinceRepository interface {
	Create(ctx context.Context, link *model.UserProvince) error
	Exists(ctx context.Context, userID, provinceID int64) (bool, error)
	Delete(ctx context.Context, userID, provinceID int64) (bool, error)
	ListProvincesByUser(ctx context.Context, userID int64) ([]model.Province, error)
	ListUsersByProvince(ctx context.Context, provinceID int64) ([]model.User, error)
	CountByProvince(ctx context.Context, provinceID int64) (int, error)
}

// Repositories bundles repositories bound to the same connection or transaction.
type Repositories struct {
	Users         UserRepository
	Provinces     ProvinceRepository
	UserProvinces UserProvinceRepository
}

// TxManager runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics.
type TxManager interface {
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}

// Store is the full persistence surface used by services.
type Store interface {
	TxManager
	Repos() Repositories
	Ping(ctx context.Context) error
}

var (
	errUserMissing     = errors.New("user does not exist")
	errProvinceMissing = errors.New("province does not exist")
)
