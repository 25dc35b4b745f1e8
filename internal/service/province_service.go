package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"
	"province_quota/internal/model"
	"province_quota/internal/repository"

	"github.com/pkg/errors"
)

// ProvinceService exposes the province catalog
type ProvinceService interface {
	ListProvinces(ctx context.Context) ([]model.Province, error)
	ListByTier(ctx context.Context, tier model.ProvinceTier) ([]model.Province, error)
	GetProvince(ctx context.Context, id int64) (*model.Province, error)
	GetProvinceByName(ctx context.Context, name string) (*model.Province, error)
	UpdateProvince(ctx context.Context, id int64, req model.UpdateProvinceRequest) (*model.Province, error)
	DeleteProvince(ctx context.Context, id int64) error
}

type provinceService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewProvinceService creates a new ProvinceService
func NewProvinceService(store repository.Store, logger *slog.Logger) ProvinceService {
	return &provinceService{store: store, logger: logger}
}

func (s *provinceService) ListProvinces(ctx context.Context) ([]model.Province, error) {
	provinces, err := s.store.Repos().Provinces.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list provinces")
	}
	return provinces, nil
}

func (s *provinceService) ListByTier(ctx context.Context, tier model.ProvinceTier) ([]model.Province, error) {
	provinces, err := s.store.Repos().Provinces.ListByTier(ctx, tier)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s provinces", tier)
	}
	return provinces, nil
}

func (s *provinceService) GetProvince(ctx context.Context, id int64) (*model.Province, error) {
	p, err := s.store.Repos().Provinces.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load province")
	}
	if p == nil {
		return nil, apperr.ErrProvinceNotFound
	}
	return p, nil
}

func (s *provinceService) GetProvinceByName(ctx context.Context, name string) (*model.Province, error) {
	p, err := s.store.Repos().Provinces.FindByName(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load province")
	}
	if p == nil {
		return nil, apperr.ErrProvinceNotFound
	}
	return p, nil
}

// resolveTier picks the requested tier. Tier wins over TaxReductionRate.
func resolveTier(req model.UpdateProvinceRequest, current model.ProvinceTier) (model.ProvinceTier, error) {
	switch {
	case req.Tier != nil:
		tier, err := model.ParseProvinceTier(*req.Tier)
		if err != nil {
			return "", apperr.ErrValidation.WithMessage(err.Error())
		}
		return tier, nil
	case req.TaxReductionRate != nil:
		tier, err := model.TierFromRate(*req.TaxReductionRate)
		if err != nil {
			return "", apperr.ErrValidation.WithMessage("tax_reduction_rate must be 0.50 or 0.25")
		}
		return tier, nil
	}
	return current, nil
}

// UpdateProvince renames or re-tiers a province. Targeted provinces keep their
// tier, and a rename may not collide with a targeting user's address.
func (s *provinceService) UpdateProvince(ctx context.Context, id int64, req model.UpdateProvinceRequest) (*model.Province, error) {
	var updated *model.Province
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		// Waits for in-flight target additions, which share-lock the row.
		found, err := repos.Provinces.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return apperr.ErrProvinceNotFound
		}
		p, err := repos.Provinces.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.ErrProvinceNotFound
		}

		tier, err := resolveTier(req, p.Tier)
		if err != nil {
			return err
		}

		name := p.Name
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
			if name == "" {
				return apperr.ErrValidation.WithMessage("name must not be empty")
			}
		}

		if name != p.Name {
			existing, err := repos.Provinces.FindByName(ctx, name)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != p.ID {
				return apperr.ErrProvinceNameExists
			}
			users, err := repos.UserProvinces.ListUsersByProvince(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, u := range users {
				if ClassifyAddressConflict(name, u.CurrentAddress) {
					return apperr.ErrAddressConflict.WithMessage(fmt.Sprintf(
						"Cannot rename province to '%s' as it matches the address of user %d who targets it", name, u.ID))
				}
			}
		}

		if tier != p.Tier {
			n, err := repos.UserProvinces.CountByProvince(ctx, p.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.ErrProvinceInUse
			}
		}

		p.Name = name
		p.Tier = tier
		p.UpdatedDate = time.Now()
		if err := repos.Provinces.Update(ctx, p); err != nil {
			return uniqueViolation(err)
		}
		updated = p
		return nil
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to update province")
	}

	logging.FromContext(ctx, s.logger).Info("province updated",
		slog.Int64("province_id", id), slog.String("name", updated.Name), slog.String("tier", string(updated.Tier)))
	return updated, nil
}

// DeleteProvince removes a province and every user's link to it
func (s *provinceService) DeleteProvince(ctx context.Context, id int64) error {
	released := 0
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		n, err := repos.UserProvinces.CountByProvince(ctx, id)
		if err != nil {
			return err
		}
		deleted, err := repos.Provinces.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrProvinceNotFound
		}
		released = n
		return nil
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return err
		}
		return errors.Wrap(err, "failed to delete province")
	}

	logging.FromContext(ctx, s.logger).Info("province deleted",
		slog.Int64("province_id", id), slog.Int("released_links", released))
	return nil
}
