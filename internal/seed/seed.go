// Package seed loads the static province catalog into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"

	"province_quota/internal/model"
	"province_quota/internal/repository"

	"github.com/pkg/errors"
)

//go:embed provinces.json
var provincesJSON []byte

type provinceEntry struct {
	Name             string  `json:"name"`
	TaxReductionRate float64 `json:"tax_reduction_rate"`
}

type dataset struct {
	PrimaryProvinces   []provinceEntry `json:"primary_provinces"`
	SecondaryProvinces []provinceEntry `json:"secondary_provinces"`
}

// Provinces returns the embedded catalog, primary provinces first.
func Provinces() ([]model.Province, error) {
	return parse(provincesJSON)
}

func parse(raw []byte) ([]model.Province, error) {
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "failed to decode province dataset")
	}

	provinces := make([]model.Province, 0, len(data.PrimaryProvinces)+len(data.SecondaryProvinces))
	seen := make(map[string]bool)
	add := func(entries []provinceEntry, want model.ProvinceTier) error {
		for _, e := range entries {
			tier, err := model.TierFromRate(e.TaxReductionRate)
			if err != nil {
				return errors.Wrapf(err, "province %q", e.Name)
			}
			if tier != want {
				return errors.Errorf("province %q listed as %s but has rate %v", e.Name, want, e.TaxReductionRate)
			}
			if e.Name == "" || seen[e.Name] {
				return errors.Errorf("empty or duplicate province name %q", e.Name)
			}
			seen[e.Name] = true
			provinces = append(provinces, model.NewProvince(e.Name, tier))
		}
		return nil
	}
	if err := add(data.PrimaryProvinces, model.TierPrimary); err != nil {
		return nil, err
	}
	if err := add(data.SecondaryProvinces, model.TierSecondary); err != nil {
		return nil, err
	}
	return provinces, nil
}

// SeedProvinces inserts the embedded catalog in one transaction when the
// province table is empty. It returns the number of inserted rows.
func SeedProvinces(ctx context.Context, tm repository.TxManager, logger *slog.Logger) (int, error) {
	provinces, err := Provinces()
	if err != nil {
		return 0, err
	}
	return seedProvinces(ctx, tm, provinces, logger)
}

func seedProvinces(ctx context.Context, tm repository.TxManager, provinces []model.Province, logger *slog.Logger) (int, error) {
	inserted := 0
	err := tm.WithTx(ctx, func(repos repository.Repositories) error {
		count, err := repos.Provinces.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			logger.Info("provinces already exist, skipping initialization", slog.Int("count", count))
			return nil
		}
		for i := range provinces {
			if err := repos.Provinces.Create(ctx, &provinces[i]); err != nil {
				return errors.Wrapf(err, "failed to seed province %q", provinces[i].Name)
			}
		}
		inserted = len(provinces)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		logger.Info("province data initialized", slog.Int("count", inserted))
	}
	return inserted, nil
}
