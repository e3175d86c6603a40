package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/metrics"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}
}

func tokenFor(t *testing.T, cfg *config.Config, role models.Role) string {
	t.Helper()
	user := &models.User{Name: "Ada Lovelace", Role: role}
	user.ID = "user-1"
	pair, err := utils.GenerateTokens(user, cfg)
	require.NoError(t, err)
	return pair.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.ResponseData {
	t.Helper()
	var body utils.ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func authRouter(cfg *config.Config, roles ...models.Role) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(cfg, zap.NewNop())}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuthMiddleware(zap.NewNop(), roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": caller.UserID, "role": caller.Role, "name": caller.Name})
	})
	r.GET("/me", handlers...)
	return r
}

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	cfg := testConfig()
	r := authRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RolePatient))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "patient", body["role"])
	assert.Equal(t, "Ada Lovelace", body["name"])
}

func TestAuthMiddlewareRejects(t *testing.T) {
	cfg := testConfig()
	expired := *cfg
	expired.JWTExpirationMinutes = -1

	tests := []struct {
		name   string
		header string
		errMsg string
	}{
		{"missing header", "", "Authorization header required"},
		{"wrong scheme", "Basic abc", "Invalid authorization header format"},
		{"garbage token", "Bearer not-a-jwt", "Invalid token"},
		{"refresh token", "", "Invalid token"},
		{"expired token", "Bearer " + tokenFor(t, &expired, models.RoleDoctor), "Token has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if tt.name == "refresh token" {
				pair, err := utils.GenerateTokens(&models.User{BaseModel: models.BaseModel{ID: "u"}, Role: models.RoleDoctor}, cfg)
				require.NoError(t, err)
				header = "Bearer " + pair.RefreshToken
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			authRouter(cfg).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decode(t, w)
			assert.Equal(t, "AUTHENTICATION_FAILED", body.Code)
			assert.Equal(t, tt.errMsg, body.Error)
		})
	}
}

func TestRoleAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	r := authRouter(cfg, models.RoleDoctor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RolePatient))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w).Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RoleDoctor))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func limitedRouter(limiter gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.POST("/login", limiter, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func login(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	r := limitedRouter(RateLimiter(nil, RateLimitConfig{Limit: 1, Window: time.Minute}, zap.NewNop()))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, login(r).Code)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := "ratelimit:/login:192.168.1.1"
	window := time.Minute

	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectExpire(key, window).SetVal(true)
	mock.ExpectIncr(key).SetVal(3)
	mock.ExpectExpire(key, window).SetVal(true)

	r := limitedRouter(RateLimiter(db, RateLimitConfig{Limit: 2, Window: window}, zap.NewNop()))

	w := login(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = login(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, utils.CodeRateLimited, decode(t, w).Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterFailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectIncr("ratelimit:/login:192.168.1.1").SetErr(errors.New("connection refused"))

	r := limitedRouter(RateLimiter(db, RateLimitConfig{Limit: 1, Window: time.Minute}, zap.NewNop()))
	assert.Equal(t, http.StatusOK, login(r).Code)
}

func TestResetRateLimit(t *testing.T) {
	assert.Error(t, ResetRateLimit(context.Background(), nil, "/login", "10.0.0.1"))

	db, mock := redismock.NewClientMock()
	mock.ExpectDel("ratelimit:/login:10.0.0.1").SetVal(1)
	require.NoError(t, ResetRateLimit(context.Background(), db, "/login", "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewCollector("test")
	r := gin.New()
	r.Use(Metrics(m), RequestLogger(zap.NewNop()))
	r.GET("/appointments/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/appointments/"+id, nil))
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/appointments/:id",status="204"} 2`)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w).Code)
}
