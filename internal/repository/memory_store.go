package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"province_quota/internal/model"
)

type memState struct {
	users     map[int64]model.User
	provinces map[int64]model.Province
	links     map[int64]model.UserProvince

	nextUserID     int64
	nextProvinceID int64
	nextLinkID     int64
}

func newMemState() *memState {
	return &memState{
		users:     make(map[int64]model.User),
		provinces: make(map[int64]model.Province),
		links:     make(map[int64]model.UserProvince),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:          make(map[int64]model.User, len(s.users)),
		provinces:      make(map[int64]model.Province, len(s.provinces)),
		links:          make(map[int64]model.UserProvince, len(s.links)),
		nextUserID:     s.nextUserID,
		nextProvinceID: s.nextProvinceID,
		nextLinkID:     s.nextLinkID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.provinces {
		c.provinces[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

// MemoryStore is an in-process Store. Transactions hold the store lock for
// their whole duration, so they are fully serialized; a failed transaction
// restores the snapshot taken when it began.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// memView binds repository calls to the store. Views created by WithTx run
// under the already-held store lock and must not lock again.
type memView struct {
	store  *MemoryStore
	locked bool
}

func (v memView) read() func() {
	if v.locked {
		return func() {}
	}
	v.store.mu.RLock()
	return v.store.mu.RUnlock
}

func (v memView) write() func() {
	if v.locked {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

func (v memView) repos() Repositories {
	return Repositories{
		Users:         &memUserRepository{v},
		Provinces:     &memProvinceRepository{v},
		UserProvinces: &memUserProvinceRepository{v},
	}
}

func (s *MemoryStore) Repos() Repositories {
	return memView{store: s}.repos()
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if r := recover(); r != nil {
			s.state = snapshot
			panic(r)
		}
	}()

	if err := fn(memView{store: s, locked: true}.repos()); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type memUserRepository struct{ v memView }

func (r *memUserRepository) Create(ctx context.Context, user *model.User) error {
	defer r.v.write()()
	st := r.v.store.state
	if err := st.checkUserUnique(user); err != nil {
		return err
	}
	st.nextUserID++
	user.ID = st.nextUserID
	st.users[user.ID] = *user
	return nil
}

// checkUserUnique reports the first violated constraint in citizen ID, phone, email order.
func (st *memState) checkUserUnique(user *model.User) error {
	checks := []struct {
		constraint string
		clash      func(u model.User) bool
	}{
		{ConstraintUserCitizenID, func(u model.User) bool { return u.CitizenID == user.CitizenID }},
		{ConstraintUserPhoneNumber, func(u model.User) bool { return u.PhoneNumber == user.PhoneNumber }},
		{ConstraintUserEmail, func(u model.User) bool { return u.Email == user.Email }},
	}
	for _, check := range checks {
		for _, u := range st.users {
			if u.ID != user.ID && check.clash(u) {
				return &DuplicateKeyError{Constraint: check.constraint}
			}
		}
	}
	return nil
}

func (r *memUserRepository) find(match func(model.User) bool) *model.User {
	defer r.v.read()()
	for _, u := range r.v.store.state.users {
		if match(u) {
			found := u
			return &found
		}
	}
	return nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id }), nil
}

func (r *memUserRepository) FindByCitizenID(ctx context.Context, citizenID string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.CitizenID == citizenID }), nil
}

func (r *memUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.PhoneNumber == phone }), nil
}

func (r *memUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email }), nil
}

func (r *memUserRepository) Update(ctx context.Context, user *model.User) error {
	defer r.v.write()()
	st := r.v.store.state
	existing, ok := st.users[user.ID]
	if !ok {
		return errUserMissing
	}
	if err := st.checkUserUnique(user); err != nil {
		return err
	}
	existing.CitizenID = user.CitizenID
	existing.Email = user.Email
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.PhoneNumber = user.PhoneNumber
	existing.CurrentAddress = user.CurrentAddress
	existing.UpdatedDate = user.UpdatedDate
	st.users[user.ID] = existing
	return nil
}

func (r *memUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	defer r.v.write()()
	u, ok := r.v.store.state.users[id]
	if !ok {
		return errUserMissing
	}
	u.PasswordHash = passwordHash
	u.UpdatedDate = time.Now()
	r.v.store.state.users[id] = u
	return nil
}

func (r *memUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	defer r.v.write()()
	u, ok := r.v.store.state.users[id]
	if !ok {
		return errUserMissing
	}
	u.LastLoginDate = &at
	r.v.store.state.users[id] = u
	return nil
}

// LockByID only checks existence; WithTx already serializes transactions.
func (r *memUserRepository) LockByID(ctx context.Context, id int64) (bool, error) {
	defer r.v.read()()
	_, ok := r.v.store.state.users[id]
	return ok, nil
}

type memProvinceRepository struct{ v memView }

func sortedProvinces(m map[int64]model.Province, keep func(model.Province) bool) []model.Province {
	out := []model.Province{}
	for _, p := range m {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Province) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *memProvinceRepository) List(ctx context.Context) ([]model.Province, error) {
	defer r.v.read()()
	return sortedProvinces(r.v.store.state.provinces, nil), nil
}

func (r *memProvinceRepository) ListByTier(ctx context.Context, tier model.ProvinceTier) ([]model.Province, error) {
	defer r.v.read()()
	return sortedProvinces(r.v.store.state.provinces, func(p model.Province) bool { return p.Tier == tier }), nil
}

func (r *memProvinceRepository) FindByID(ctx context.Context, id int64) (*model.Province, error) {
	defer r.v.read()()
	p, ok := r.v.store.state.provinces[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// LockByID only checks existence; WithTx already serializes transactions.
func (r *memProvinceRepository) LockByID(ctx context.Context, id int64) (bool, error) {
	defer r.v.read()()
	_, ok := r.v.store.state.provinces[id]
	return ok, nil
}

func (r *memProvinceRepository) ShareLockByID(ctx context.Context, id int64) (bool, error) {
	return r.LockByID(ctx, id)
}

func (r *memProvinceRepository) FindByName(ctx context.Context, name string) (*model.Province, error) {
	defer r.v.read()()
	for _, p := range r.v.store.state.provinces {
		if p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (st *memState) checkProvinceUnique(p *model.Province) error {
	for _, existing := range st.provinces {
		if existing.ID != p.ID && existing.Name == p.Name {
			return &DuplicateKeyError{Constraint: ConstraintProvinceName}
		}
	}
	return nil
}

func (r *memProvinceRepository) Create(ctx context.Context, p *model.Province) error {
	defer r.v.write()()
	st := r.v.store.state
	if err := st.checkProvinceUnique(p); err != nil {
		return err
	}
	st.nextProvinceID++
	p.ID = st.nextProvinceID
	p.TaxReductionRate = p.Tier.TaxReductionRate()
	st.provinces[p.ID] = *p
	return nil
}

func (r *memProvinceRepository) Update(ctx context.Context, p *model.Province) error {
	defer r.v.write()()
	st := r.v.store.state
	existing, ok := st.provinces[p.ID]
	if !ok {
		return errProvinceMissing
	}
	if err := st.checkProvinceUnique(p); err != nil {
		return err
	}
	existing.Name = p.Name
	existing.Tier = p.Tier
	existing.TaxReductionRate = p.Tier.TaxReductionRate()
	existing.UpdatedDate = p.UpdatedDate
	st.provinces[p.ID] = existing
	p.TaxReductionRate = existing.TaxReductionRate
	return nil
}

// Delete removes the province and cascades its links.
func (r *memProvinceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	defer r.v.write()()
	st := r.v.store.state
	if _, ok := st.provinces[id]; !ok {
		return false, nil
	}
	delete(st.provinces, id)
	for linkID, link := range st.links {
		if link.ProvinceID == id {
			delete(st.links, linkID)
		}
	}
	return true, nil
}

func (r *memProvinceRepository) Count(ctx context.Context) (int, error) {
	defer r.v.read()()
	return len(r.v.store.state.provinces), nil
}

type memUserProvinceRepository struct{ v memView }

func (r *memUserProvinceRepository) Create(ctx context.Context, link *model.UserProvince) error {
	defer r.v.write()()
	st := r.v.store.state
	if _, ok := st.users[link.UserID]; !ok {
		return errUserMissing
	}
	if _, ok := st.provinces[link.ProvinceID]; !ok {
		return errProvinceMissing
	}
	for _, existing := range st.links {
		if existing.UserID == link.UserID && existing.ProvinceID == link.ProvinceID {
			return &DuplicateKeyError{Constraint: ConstraintUserProvinceLink}
		}
	}
	st.nextLinkID++
	link.ID = st.nextLinkID
	st.links[link.ID] = *link
	return nil
}

func (r *memUserProvinceRepository) Exists(ctx context.Context, userID, provinceID int64) (bool, error) {
	defer r.v.read()()
	for _, link := range r.v.store.state.links {
		if link.UserID == userID && link.ProvinceID == provinceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserProvinceRepository) Delete(ctx context.Context, userID, provinceID int64) (bool, error) {
	defer r.v.write()()
	st := r.v.store.state
	for id, link := range st.links {
		if link.UserID == userID && link.ProvinceID == provinceID {
			delete(st.links, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserProvinceRepository) sortedLinks(keep func(model.UserProvince) bool) []model.UserProvince {
	out := []model.UserProvince{}
	for _, link := range r.v.store.state.links {
		if keep(link) {
			out = append(out, link)
		}
	}
	slices.SortFunc(out, func(a, b model.UserProvince) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *memUserProvinceRepository) ListProvincesByUser(ctx context.Context, userID int64) ([]model.Province, error) {
	defer r.v.read()()
	provinces := []model.Province{}
	for _, link := range r.sortedLinks(func(l model.UserProvince) bool { return l.UserID == userID }) {
		if p, ok := r.v.store.state.provinces[link.ProvinceID]; ok {
			provinces = append(provinces, p)
		}
	}
	return provinces, nil
}

func (r *memUserProvinceRepository) ListUsersByProvince(ctx context.Context, provinceID int64) ([]model.User, error) {
	defer r.v.read()()
	users := []model.User{}
	for _, link := range r.sortedLinks(func(l model.UserProvince) bool { return l.ProvinceID == provinceID }) {
		if u, ok := r.v.store.state.users[link.UserID]; ok {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (r *memUserProvinceRepository) CountByProvince(ctx context.Context, provinceID int64) (int, error) {
	defer r.v.read()()
	return len(r.sortedLinks(func(l model.UserProvince) bool { return l.ProvinceID == provinceID })), nil
}
