package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"
	"province_quota/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver map[string]*model.User

func (s stubResolver) ResolveAccessToken(_ context.Context, token string) (*model.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, apperr.ErrUnauthorized
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(logging.Discard()), AccessLog(logging.Discard()), Recovery())
	r.GET("/protected", append(mw, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "role": c.GetString(AuthRoleKey)})
	})...)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/fail", func(c *gin.Context) { AbortWithError(c, errors.New("db down")) })
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestJWTAuthMiddleware(t *testing.T) {
	resolver := stubResolver{
		"user-token":  {ID: 1, Role: model.RoleUser},
		"admin-token": {ID: 2, Role: model.RoleAdmin},
	}
	router := newRouter(JWTAuthMiddleware(resolver))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"valid token", "Bearer user-token", http.StatusOK, ""},
		{"lowercase scheme", "bearer admin-token", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestJWTAuthMiddleware_InvalidTokenMessage(t *testing.T) {
	router := newRouter(JWTAuthMiddleware(stubResolver{}))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer gone")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "Could not validate credentials", decodeError(t, w).Message)
}

func TestAdminMiddleware(t *testing.T) {
	resolver := stubResolver{
		"user-token":  {ID: 1, Role: model.RoleUser},
		"admin-token": {ID: 2, Role: model.RoleAdmin},
	}
	router := newRouter(JWTAuthMiddleware(resolver), AdminMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w).Code)

	req.Header.Set("Authorization", "Bearer admin-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(HeaderXRequestID, "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(HeaderXRequestID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Len(t, w.Header().Get(HeaderXRequestID), 36)
}

func TestAbortWithError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, body.Message, "db down")
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Code)
}
