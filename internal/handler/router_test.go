package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"province_quota/internal/logging"
	"province_quota/internal/metrics"
	"province_quota/internal/model"
	"province_quota/internal/repository"
	"province_quota/internal/service"
	"province_quota/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminPhone = "0999999999"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testServer struct {
	t      *testing.T
	store  *repository.MemoryStore
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := logging.Discard()

	accessJWT := utils.NewJWTUtil("test-secret", utils.TokenTypeAccess, 60)
	refreshJWT := utils.NewJWTUtil("test-secret:refresh", utils.TokenTypeRefresh, 120)
	auth := service.NewAuthService(store, accessJWT, refreshJWT,
		service.AuthOptions{InitialAdminPhone: adminPhone, BcryptCost: bcrypt.MinCost}, m, logger)

	router := NewRouter(RouterDeps{
		Auth:      auth,
		Users:     service.NewUserService(store, bcrypt.MinCost, logger),
		Provinces: service.NewProvinceService(store, logger),
		Quota:     service.NewQuotaService(store, m, logger),
		Store:     store,
		Gatherer:  reg,
		Logger:    logger,
	})
	return &testServer{t: t, store: store, router: router}
}

func (s *testServer) province(name string, tier model.ProvinceTier) model.Province {
	s.t.Helper()
	p := model.NewProvince(name, tier)
	require.NoError(s.t, s.store.Repos().Provinces.Create(context.Background(), &p))
	return p
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func registerBody(n int, phone, address string) map[string]string {
	return map[string]string{
		"email":           fmt.Sprintf("user%d@example.com", n),
		"citizen_id":      fmt.Sprintf("110000000%04d", n),
		"first_name":      "Somchai",
		"last_name":       fmt.Sprintf("Jaidee%d", n),
		"phone_number":    phone,
		"current_address": address,
		"password":        "secret123",
	}
}

// signup registers a user and logs in through the form endpoint.
func (s *testServer) signup(n int, phone, address string) (model.User, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/v1/register", "", registerBody(n, phone, address))
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var user model.User
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &user))

	form := url.Values{"username": {user.CitizenID}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var token model.Token
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &token))
	return user, token.AccessToken
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	user, access := s.signup(1, "0811111111", "Chiang Mai")
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotContains(t, s.do(http.MethodGet, "/v1/users/me", access, nil).Body.String(), "password")

	w := s.do(http.MethodGet, "/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[model.User](t, w).ID)

	w = s.do(http.MethodPost, "/v1/token", "", map[string]string{"username": "0811111111", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[model.Token](t, w)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(60), token.ExpiresIn)
	assert.Equal(t, user.ID, token.UserID)

	w = s.do(http.MethodPost, "/v1/token/refresh", "", map[string]string{"refresh_token": token.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/token/refresh", "", map[string]string{"refresh_token": token.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/token", "", map[string]string{"username": "0811111111", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = s.do(http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)
	s.signup(1, "0811111111", "Chiang Mai")

	dup := registerBody(1, "0822222222", "Phuket")
	dup["email"] = "other@example.com"
	w := s.do(http.MethodPost, "/v1/register", "", dup)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CITIZEN_ID_EXISTS", errorCode(t, w))

	phone := registerBody(2, "0811111111", "Phuket")
	w = s.do(http.MethodPost, "/v1/users/create", "", phone)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PHONE_NUMBER_EXISTS", errorCode(t, w))

	bad := registerBody(3, "0833333333", "Phuket")
	bad["citizen_id"] = "12345"
	w = s.do(http.MethodPost, "/v1/register", "", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
}

func TestTargetProvinceFlow(t *testing.T) {
	s := newTestServer(t)
	bangkok := s.province("Bangkok", model.TierSecondary)
	phuket := s.province("Phuket", model.TierSecondary)
	nan := s.province("Nan", model.TierPrimary)
	_, access := s.signup(1, "0811111111", "99 Sukhumvit Road, Bangkok")

	w := s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": bangkok.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ADDRESS_CONFLICT", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PROVINCE_NOT_FOUND", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": nan.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	added := decode[model.AddTargetProvinceResult](t, w)
	assert.Equal(t, "Successfully added primary province 'Nan' as target province", added.Message)
	assert.Equal(t, 2, added.Quota.RemainingPrimaryQuota)

	w = s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": nan.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ASSIGNMENT", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": phuket.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/user-provinces/my-quota", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	quota := decode[model.QuotaStatus](t, w)
	assert.Equal(t, 2, quota.TotalProvinces)
	assert.Equal(t, 1, quota.RemainingSecondaryQuota)

	w = s.do(http.MethodGet, "/v1/user-provinces/my-provinces", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Province](t, w), 2)

	w = s.do(http.MethodGet, "/v1/user-provinces/available-provinces", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[model.AvailabilityReport](t, w)
	require.Len(t, report.ExcludedProvinces, 1)
	assert.Equal(t, model.ExclusionReasonAddress, report.ExcludedProvinces[0].Reason)

	path := fmt.Sprintf("/v1/user-provinces/target-province/%d", nan.ID)
	w = s.do(http.MethodDelete, path, access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Nan", decode[model.RemoveTargetProvinceResult](t, w).ProvinceName)

	w = s.do(http.MethodDelete, path, access, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PROVINCE_NOT_ASSIGNED", errorCode(t, w))

	w = s.do(http.MethodDelete, "/v1/user-provinces/target-province/abc", access, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTargetProvince_QuotaCodes(t *testing.T) {
	s := newTestServer(t)
	_, access := s.signup(1, "0811111111", "Nowhere")
	var secondary []model.Province
	for i := 1; i <= 3; i++ {
		secondary = append(secondary, s.province(fmt.Sprintf("Second-%d", i), model.TierSecondary))
	}

	for _, p := range secondary[:2] {
		w := s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": p.ID})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]int64{"province_id": secondary[2].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SECONDARY_QUOTA_EXCEEDED", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/user-provinces/target-province", access, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
}

func TestProvinceRoutes(t *testing.T) {
	s := newTestServer(t)
	nan := s.province("Nan", model.TierPrimary)
	s.province("Phuket", model.TierSecondary)
	_, userToken := s.signup(1, "0811111111", "Chiang Mai")
	_, adminToken := s.signup(2, adminPhone, "Chiang Mai")

	w := s.do(http.MethodGet, "/v1/provinces", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[model.ProvinceList](t, w).Provinces, 2)

	w = s.do(http.MethodGet, "/v1/provinces/primary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	primary := decode[model.ProvinceList](t, w).Provinces
	require.Len(t, primary, 1)
	assert.Equal(t, "Nan", primary[0].Name)

	w = s.do(http.MethodGet, "/v1/provinces/name/Phuket", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.25, decode[model.Province](t, w).TaxReductionRate)

	w = s.do(http.MethodGet, "/v1/provinces/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	path := fmt.Sprintf("/v1/provinces/%d", nan.ID)
	w = s.do(http.MethodPut, path, userToken, map[string]string{"name": "Nan City"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, adminToken, map[string]string{"name": "Nan City"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Nan City", decode[model.Province](t, w).Name)

	w = s.do(http.MethodPut, path, adminToken, map[string]string{"name": "Phuket"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PROVINCE_NAME_EXISTS", errorCode(t, w))

	w = s.do(http.MethodDelete, path, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup(1, "0811111111", "Chiang Mai")
	bob, _ := s.signup(2, "0822222222", "Phuket")
	_, adminToken := s.signup(3, adminPhone, "Nan")

	w := s.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/users/9999", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))

	w = s.do(http.MethodPut, fmt.Sprintf("/v1/users/%d/update", bob.ID), aliceToken, map[string]string{"first_name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/v1/users/%d/update", alice.ID), aliceToken, map[string]string{"first_name": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", decode[model.User](t, w).FirstName)

	changePath := fmt.Sprintf("/v1/users/%d/change_password", alice.ID)
	w = s.do(http.MethodPut, changePath, aliceToken, map[string]string{"current_password": "nope", "new_password": "newsecret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INCORRECT_PASSWORD", errorCode(t, w))

	w = s.do(http.MethodPut, changePath, aliceToken, map[string]string{"current_password": "secret123", "new_password": "newsecret"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/v1/user-provinces/%d/provinces", alice.ID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/v1/user-provinces/%d/provinces", alice.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice Jaidee1", decode[model.UserProvincesReport](t, w).UserName)

	w = s.do(http.MethodGet, "/v1/user-provinces/9999/provinces", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.signup(1, "0811111111", "Nan")

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "province_quota_registrations_total 1")
	assert.Contains(t, w.Body.String(), `province_quota_logins_total{result="success"} 1`)

	w = s.do(http.MethodGet, "/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}
