package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"
	"province_quota/internal/metrics"
	"province_quota/internal/model"
	"province_quota/internal/repository"

	"github.com/pkg/errors"
)

const unknownProvinceName = "Unknown"

// QuotaService allocates target provinces to users under the quota rules.
type QuotaService interface {
	ComputeQuota(ctx context.Context, userID int64) (*model.QuotaStatus, error)
	AddTargetProvince(ctx context.Context, userID, provinceID int64) (*model.AddTargetProvinceResult, error)
	RemoveTargetProvince(ctx context.Context, userID, provinceID int64) (*model.RemoveTargetProvinceResult, error)
	ListAvailableProvinces(ctx context.Context, userID int64) (*model.AvailabilityReport, error)
	ListMyProvinces(ctx context.Context, userID int64) ([]model.Province, error)
	GetUserProvinces(ctx context.Context, userID int64) (*model.UserProvincesReport, error)
}

type quotaService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(store repository.Store, m *metrics.Metrics, logger *slog.Logger) QuotaService {
	return &quotaService{store: store, metrics: m, logger: logger}
}

// QuotaFromProvinces builds a quota snapshot from a user's linked provinces.
func QuotaFromProvinces(provinces []model.Province) model.QuotaStatus {
	primary := 0
	for _, p := range provinces {
		if p.IsPrimary() {
			primary++
		}
	}
	secondary := len(provinces) - primary
	return model.QuotaStatus{
		TotalProvinces:          len(provinces),
		PrimaryProvinces:        primary,
		SecondaryProvinces:      secondary,
		RemainingPrimaryQuota:   max(0, model.MaxPrimaryQuota-primary),
		RemainingSecondaryQuota: max(0, model.MaxSecondaryQuota-secondary),
		MaxPrimaryQuota:         model.MaxPrimaryQuota,
		MaxSecondaryQuota:       model.MaxSecondaryQuota,
		MaxTotalQuota:           model.MaxTotalQuota,
	}
}

// computeQuota reads through links so it sees the caller's transaction, if any.
func computeQuota(ctx context.Context, links repository.UserProvinceRepository, userID int64) (model.QuotaStatus, []model.Province, error) {
	provinces, err := links.ListProvincesByUser(ctx, userID)
	if err != nil {
		return model.QuotaStatus{}, nil, errors.Wrap(err, "failed to load user provinces")
	}
	return QuotaFromProvinces(provinces), provinces, nil
}

func (s *quotaService) ComputeQuota(ctx context.Context, userID int64) (*model.QuotaStatus, error) {
	quota, _, err := computeQuota(ctx, s.store.Repos().UserProvinces, userID)
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

func (s *quotaService) ListMyProvinces(ctx context.Context, userID int64) ([]model.Province, error) {
	provinces, err := s.store.Repos().UserProvinces.ListProvincesByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user provinces")
	}
	return provinces, nil
}

// AddTargetProvince links a province to the user. The user row is locked first
// so concurrent additions for one user are evaluated one after another, then the
// province row is share-locked so its name and tier stay fixed until commit.
func (s *quotaService) AddTargetProvince(ctx context.Context, userID, provinceID int64) (*model.AddTargetProvinceResult, error) {
	logger := logging.FromContext(ctx, s.logger).With(slog.Int64("user_id", userID), slog.Int64("province_id", provinceID))

	var result *model.AddTargetProvinceResult
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		found, err := repos.Users.LockByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.ErrUnauthorized
		}
		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		// Holds off renames and tier changes until the link is committed.
		exists, err := repos.Provinces.ShareLockByID(ctx, provinceID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.ErrProvinceNotFound
		}
		province, err := repos.Provinces.FindByID(ctx, provinceID)
		if err != nil {
			return err
		}
		if province == nil {
			return apperr.ErrProvinceNotFound
		}

		if ClassifyAddressConflict(province.Name, user.CurrentAddress) {
			return apperr.ErrAddressConflict.WithMessage(fmt.Sprintf(
				"Cannot select province '%s' as it matches your registered address '%s'", province.Name, user.CurrentAddress))
		}

		linked, err := repos.UserProvinces.Exists(ctx, userID, provinceID)
		if err != nil {
			return err
		}
		if linked {
			return duplicateAssignment(province.Name)
		}

		quota, _, err := computeQuota(ctx, repos.UserProvinces, userID)
		if err != nil {
			return err
		}
		if quota.TotalProvinces >= model.MaxTotalQuota {
			return apperr.ErrTotalQuotaExceeded
		}
		if quota.RemainingFor(province.Tier) <= 0 {
			if province.IsPrimary() {
				return apperr.ErrPrimaryQuotaExceeded
			}
			return apperr.ErrSecondaryQuotaExceeded
		}

		link := &model.UserProvince{UserID: userID, ProvinceID: provinceID, CreatedDate: time.Now()}
		if err := repos.UserProvinces.Create(ctx, link); err != nil {
			if constraint, ok := repository.DuplicateConstraint(err); ok && constraint == repository.ConstraintUserProvinceLink {
				return duplicateAssignment(province.Name)
			}
			return err
		}

		after, _, err := computeQuota(ctx, repos.UserProvinces, userID)
		if err != nil {
			return err
		}

		result = &model.AddTargetProvinceResult{
			Message:          fmt.Sprintf("Successfully added %s province '%s' as target province", province.Tier, province.Name),
			Link:             *link,
			ProvinceID:       province.ID,
			ProvinceName:     province.Name,
			ProvinceType:     province.Tier,
			TaxReductionRate: province.TaxReductionRate,
			RemainingQuota: model.RemainingQuota{
				Primary:   after.RemainingPrimaryQuota,
				Secondary: after.RemainingSecondaryQuota,
				Total:     after.TotalProvinces,
			},
			Quota: after,
		}
		return nil
	})
	if err != nil {
		if appErr, ok := apperr.From(err); ok {
			s.metrics.IncrementTargetRejected(appErr.ErrorCode())
			logger.Info("target province rejected", slog.String("reason", appErr.ErrorCode()))
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to add target province")
	}

	s.metrics.IncrementTargetAdded()
	logger.Info("target province added", slog.String("tier", string(result.ProvinceType)))
	return result, nil
}

func duplicateAssignment(provinceName string) error {
	return apperr.ErrDuplicateAssignment.WithMessage(fmt.Sprintf("Province '%s' is already your target province", provinceName))
}

// RemoveTargetProvince deletes the user's link to a province.
func (s *quotaService) RemoveTargetProvince(ctx context.Context, userID, provinceID int64) (*model.RemoveTargetProvinceResult, error) {
	var result *model.RemoveTargetProvinceResult
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		linked, err := repos.UserProvinces.Exists(ctx, userID, provinceID)
		if err != nil {
			return err
		}
		if !linked {
			return apperr.ErrNotAssigned
		}

		name, tier := unknownProvinceName, model.TierSecondary
		province, err := repos.Provinces.FindByID(ctx, provinceID)
		if err != nil {
			return err
		}
		if province != nil {
			name, tier = province.Name, province.Tier
		}

		deleted, err := repos.UserProvinces.Delete(ctx, userID, provinceID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrNotAssigned
		}

		result = &model.RemoveTargetProvinceResult{
			Message:      fmt.Sprintf("Successfully removed %s province '%s' from target provinces", tier, name),
			ProvinceID:   provinceID,
			ProvinceName: name,
			ProvinceType: tier,
		}
		return nil
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to remove target province")
	}

	s.metrics.IncrementTargetRemoved()
	logging.FromContext(ctx, s.logger).Info("target province removed",
		slog.Int64("user_id", userID), slog.Int64("province_id", provinceID))
	return result, nil
}

// ListAvailableProvinces reports which provinces the user may still select.
func (s *quotaService) ListAvailableProvinces(ctx context.Context, userID int64) (*model.AvailabilityReport, error) {
	repos := s.store.Repos()

	user, err := repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}

	quota, mine, err := computeQuota(ctx, repos.UserProvinces, userID)
	if err != nil {
		return nil, err
	}
	linked := make(map[int64]bool, len(mine))
	for _, p := range mine {
		linked[p.ID] = true
	}

	catalog, err := repos.Provinces.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list provinces")
	}

	report := &model.AvailabilityReport{
		QuotaStatus: quota,
		UserAddress: user.CurrentAddress,
		AvailableProvinces: model.AvailableProvinces{
			Primary:   []model.Province{},
			Secondary: []model.Province{},
		},
		ExcludedProvinces: []model.ExcludedProvince{},
	}
	for _, p := range catalog {
		if linked[p.ID] {
			continue
		}
		if ClassifyAddressConflict(p.Name, user.CurrentAddress) {
			report.ExcludedProvinces = append(report.ExcludedProvinces, model.ExcludedProvince{
				ID:     p.ID,
				Name:   p.Name,
				Reason: model.ExclusionReasonAddress,
			})
			continue
		}
		switch {
		case p.IsPrimary() && quota.RemainingPrimaryQuota > 0:
			report.AvailableProvinces.Primary = append(report.AvailableProvinces.Primary, p)
		case !p.IsPrimary() && quota.RemainingSecondaryQuota > 0:
			report.AvailableProvinces.Secondary = append(report.AvailableProvinces.Secondary, p)
		}
	}
	report.TotalAvailable = len(report.AvailableProvinces.Primary) + len(report.AvailableProvinces.Secondary)
	report.TotalExcluded = len(report.ExcludedProvinces)
	return report, nil
}

// GetUserProvinces is the administrative view of another user's selections.
func (s *quotaService) GetUserProvinces(ctx context.Context, userID int64) (*model.UserProvincesReport, error) {
	repos := s.store.Repos()

	user, err := repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUserNotFound.WithMessage("User not found")
	}

	quota, provinces, err := computeQuota(ctx, repos.UserProvinces, userID)
	if err != nil {
		return nil, err
	}

	report := &model.UserProvincesReport{
		UserID:             user.ID,
		UserName:           user.FullName(),
		TotalProvinces:     quota.TotalProvinces,
		PrimaryProvinces:   []model.Province{},
		SecondaryProvinces: []model.Province{},
		QuotaUsage: model.QuotaUsage{
			PrimaryUsed:        quota.PrimaryProvinces,
			PrimaryRemaining:   quota.RemainingPrimaryQuota,
			SecondaryUsed:      quota.SecondaryProvinces,
			SecondaryRemaining: quota.RemainingSecondaryQuota,
			TotalUsed:          quota.TotalProvinces,
			TotalRemaining:     quota.RemainingTotalQuota(),
		},
	}
	for _, p := range provinces {
		if p.IsPrimary() {
			report.PrimaryProvinces = append(report.PrimaryProvinces, p)
		} else {
			report.SecondaryProvinces = append(report.SecondaryProvinces, p)
		}
	}
	return report, nil
}
