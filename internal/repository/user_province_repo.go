package repository

import (
	"context"

	"province_quota/internal/model"

	"github.com/pkg/errors"
)

type userProvinceRepository struct {
	db DBTX
}

// NewUserProvinceRepository creates a new UserProvinceRepository
func NewUserProvinceRepository(db DBTX) UserProvinceRepository {
	return &userProvinceRepository{db: db}
}

// Create inserts a link; a second link for the same pair yields a DuplicateKeyError
func (r *userProvinceRepository) Create(ctx context.Context, link *model.UserProvince) error {
	sql := `INSERT INTO user_provinces (user_id, province_id, created_date) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRow(ctx, sql, link.UserID, link.ProvinceID, link.CreatedDate).Scan(&link.ID)
	if err != nil {
		return errors.Wrap(mapPgError(err), "failed to create user province")
	}
	return nil
}

func (r *userProvinceRepository) Exists(ctx context.Context, userID, provinceID int64) (bool, error) {
	var exists bool
	sql := `SELECT EXISTS (SELECT 1 FROM user_provinces WHERE user_id = $1 AND province_id = $2)`
	if err := r.db.QueryRow(ctx, sql, userID, provinceID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check user province")
	}
	return exists, nil
}

func (r *userProvinceRepository) Delete(ctx context.Context, userID, provinceID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_provinces WHERE user_id = $1 AND province_id = $2`, userID, provinceID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete user province")
	}
	return tag.RowsAffected() > 0, nil
}

// ListProvincesByUser returns the user's target provinces in selection order
func (r *userProvinceRepository) ListProvincesByUser(ctx context.Context, userID int64) ([]model.Province, error) {
	sql := `SELECT p.id, p.name, p.tier, p.created_date, p.updated_date
            FROM user_provinces up JOIN provinces p ON p.id = up.province_id
            WHERE up.user_id = $1 ORDER BY up.id`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user provinces")
	}
	provinces, err := collectProvinces(rows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan user provinces")
	}
	return provinces, nil
}

func (r *userProvinceRepository) ListUsersByProvince(ctx context.Context, provinceID int64) ([]model.User, error) {
	sql := `SELECT u.id, u.citizen_id, u.email, u.first_name, u.last_name, u.phone_number, u.current_address,
            u.password_hash, u.role, u.register_date, u.updated_date, u.last_login_date
            FROM user_provinces up JOIN users u ON u.id = up.user_id
            WHERE up.province_id = $1 ORDER BY u.id`
	rows, err := r.db.Query(ctx, sql, provinceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list province users")
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan province users")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate province users")
	}
	return users, nil
}

func (r *userProvinceRepository) CountByProvince(ctx context.Context, provinceID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_provinces WHERE province_id = $1`, provinceID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count user provinces")
	}
	return n, nil
}
