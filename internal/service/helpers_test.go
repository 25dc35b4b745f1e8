package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"province_quota/internal/logging"
	"province_quota/internal/metrics"
	"province_quota/internal/model"
	"province_quota/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx     context.Context
	store   *repository.MemoryStore
	metrics *metrics.Metrics
	quota   QuotaService
	seq     atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		metrics: m,
		quota:   NewQuotaService(store, m, logging.Discard()),
	}
}

func (f *fixture) user(t *testing.T, address string) *model.User {
	t.Helper()
	n := f.seq.Add(1)
	now := time.Now()
	u := &model.User{
		CitizenID:      fmt.Sprintf("%013d", n),
		Email:          fmt.Sprintf("user%d@example.com", n),
		FirstName:      "Test",
		LastName:       fmt.Sprintf("User%d", n),
		PhoneNumber:    fmt.Sprintf("08%08d", n),
		CurrentAddress: address,
		Role:           model.RoleUser,
		RegisterDate:   now,
		UpdatedDate:    now,
	}
	require.NoError(t, f.store.Repos().Users.Create(f.ctx, u))
	return u
}

func (f *fixture) province(t *testing.T, name string, tier model.ProvinceTier) *model.Province {
	t.Helper()
	p := model.NewProvince(name, tier)
	require.NoError(t, f.store.Repos().Provinces.Create(f.ctx, &p))
	return &p
}

func (f *fixture) link(t *testing.T, userID int64, provinces ...*model.Province) {
	t.Helper()
	for _, p := range provinces {
		require.NoError(t, f.store.Repos().UserProvinces.Create(f.ctx, &model.UserProvince{
			UserID: userID, ProvinceID: p.ID, CreatedDate: time.Now(),
		}))
	}
}

// provinces creates count provinces of one tier named prefix-1, prefix-2, ...
func (f *fixture) provinces(t *testing.T, prefix string, tier model.ProvinceTier, count int) []*model.Province {
	t.Helper()
	out := make([]*model.Province, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, f.province(t, fmt.Sprintf("%s-%d", prefix, i), tier))
	}
	return out
}
