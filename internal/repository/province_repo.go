package repository

import (
	"context"

	"province_quota/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const provinceColumns = `id, name, tier, created_date, updated_date`

type provinceRepository struct {
	db DBTX
}

// NewProvinceRepository creates a new ProvinceRepository
func NewProvinceRepository(db DBTX) ProvinceRepository {
	return &provinceRepository{db: db}
}

func scanProvince(row pgx.Row) (*model.Province, error) {
	p := &model.Province{}
	var tier string
	if err := row.Scan(&p.ID, &p.Name, &tier, &p.CreatedDate, &p.UpdatedDate); err != nil {
		return nil, err
	}
	p.Tier = model.ProvinceTier(tier)
	p.TaxReductionRate = p.Tier.TaxReductionRate()
	return p, nil
}

func collectProvinces(rows pgx.Rows) ([]model.Province, error) {
	defer rows.Close()
	provinces := []model.Province{}
	for rows.Next() {
		p, err := scanProvince(rows)
		if err != nil {
			return nil, err
		}
		provinces = append(provinces, *p)
	}
	return provinces, rows.Err()
}

// List returns the whole catalog ordered by id
func (r *provinceRepository) List(ctx context.Context) ([]model.Province, error) {
	rows, err := r.db.Query(ctx, `SELECT `+provinceColumns+` FROM provinces ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list provinces")
	}
	provinces, err := collectProvinces(rows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan provinces")
	}
	return provinces, nil
}

func (r *provinceRepository) ListByTier(ctx context.Context, tier model.ProvinceTier) ([]model.Province, error) {
	rows, err := r.db.Query(ctx, `SELECT `+provinceColumns+` FROM provinces WHERE tier = $1 ORDER BY id`, string(tier))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s provinces", tier)
	}
	provinces, err := collectProvinces(rows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan provinces")
	}
	return provinces, nil
}

func (r *provinceRepository) findOne(ctx context.Context, where string, arg any) (*model.Province, error) {
	p, err := scanProvince(r.db.QueryRow(ctx, `SELECT `+provinceColumns+` FROM provinces WHERE `+where+` = $1`, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to find province by %s", where)
	}
	return p, nil
}

func (r *provinceRepository) FindByID(ctx context.Context, id int64) (*model.Province, error) {
	return r.findOne(ctx, "id", id)
}

// LockByID locks the province row for update until the transaction ends
func (r *provinceRepository) LockByID(ctx context.Context, id int64) (bool, error) {
	return r.lock(ctx, `SELECT id FROM provinces WHERE id = $1 FOR UPDATE`, id)
}

// ShareLockByID blocks updates and deletes of the province until the transaction
// ends while letting other share lockers through.
func (r *provinceRepository) ShareLockByID(ctx context.Context, id int64) (bool, error) {
	return r.lock(ctx, `SELECT id FROM provinces WHERE id = $1 FOR SHARE`, id)
}

func (r *provinceRepository) lock(ctx context.Context, sql string, id int64) (bool, error) {
	var locked int64
	if err := r.db.QueryRow(ctx, sql, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to lock province")
	}
	return true, nil
}

// FindByName matches the stored name exactly
func (r *provinceRepository) FindByName(ctx context.Context, name string) (*model.Province, error) {
	return r.findOne(ctx, "name", name)
}

func (r *provinceRepository) Create(ctx context.Context, p *model.Province) error {
	sql := `INSERT INTO provinces (name, tier, created_date, updated_date) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRow(ctx, sql, p.Name, string(p.Tier), p.CreatedDate, p.UpdatedDate).Scan(&p.ID); err != nil {
		return errors.Wrap(mapPgError(err), "failed to create province")
	}
	p.TaxReductionRate = p.Tier.TaxReductionRate()
	return nil
}

func (r *provinceRepository) Update(ctx context.Context, p *model.Province) error {
	sql := `UPDATE provinces SET name = $1, tier = $2, updated_date = $3 WHERE id = $4`
	tag, err := r.db.Exec(ctx, sql, p.Name, string(p.Tier), p.UpdatedDate, p.ID)
	if err != nil {
		return errors.Wrap(mapPgError(err), "failed to update province")
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("province %d not found for update", p.ID)
	}
	p.TaxReductionRate = p.Tier.TaxReductionRate()
	return nil
}

// Delete removes a province; links to it cascade
func (r *provinceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM provinces WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete province")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *provinceRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM provinces`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count provinces")
	}
	return n, nil
}
