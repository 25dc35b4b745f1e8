package repository

import (
	"context"
	"time"

	"province_quota/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const userColumns = `id, citizen_id, email, first_name, last_name, phone_number, current_address,
	password_hash, role, register_date, updated_date, last_login_date`

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.CitizenID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.CurrentAddress, &u.PasswordHash, &u.Role, &u.RegisterDate, &u.UpdatedDate, &u.LastLoginDate)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (citizen_id, email, first_name, last_name, phone_number, current_address,
            password_hash, role, register_date, updated_date)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.QueryRow(ctx, sql, user.CitizenID, user.Email, user.FirstName, user.LastName, user.PhoneNumber,
		user.CurrentAddress, user.PasswordHash, user.Role, user.RegisterDate, user.UpdatedDate).Scan(&user.ID)
	if err != nil {
		return errors.Wrap(mapPgError(err), "failed to create user")
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, what, where string, arg any) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // not found is for the service layer to decide
		}
		return nil, errors.Wrapf(err, "failed to find user by %s", what)
	}
	return user, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "ID", "id", id)
}

func (r *userRepository) FindByCitizenID(ctx context.Context, citizenID string) (*model.User, error) {
	return r.findOne(ctx, "citizen ID", "citizen_id", citizenID)
}

// FindByPhone retrieves a user by their phone number
func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.findOne(ctx, "phone", "phone_number", phone)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", "email", email)
}

// Update writes every profile field and bumps updated_date
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	sql := `UPDATE users SET citizen_id = $1, email = $2, first_name = $3, last_name = $4, phone_number = $5,
            current_address = $6, updated_date = $7 WHERE id = $8`
	tag, err := r.db.Exec(ctx, sql, user.CitizenID, user.Email, user.FirstName, user.LastName, user.PhoneNumber,
		user.CurrentAddress, user.UpdatedDate, user.ID)
	if err != nil {
		return errors.Wrap(mapPgError(err), "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("user %d not found for update", user.ID)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	sql := `UPDATE users SET password_hash = $1, updated_date = $2 WHERE id = $3`
	if _, err := r.db.Exec(ctx, sql, passwordHash, time.Now(), id); err != nil {
		return errors.Wrap(err, "failed to update password")
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	sql := `UPDATE users SET last_login_date = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, sql, at, id); err != nil {
		return errors.Wrap(err, "failed to update last login")
	}
	return nil
}

// LockByID locks the user row for the rest of the transaction
func (r *userRepository) LockByID(ctx context.Context, id int64) (bool, error) {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to lock user")
	}
	return true, nil
}
