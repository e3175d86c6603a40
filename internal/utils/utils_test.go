package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Name: "Dr Bo", Role: models.RoleDoctor}
	user.ID = "user-1"

	pair, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.RefreshExpiresAt, time.Minute)

	claims, err := ValidateToken(pair.AccessToken, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleDoctor, claims.Role)
	assert.Equal(t, "Dr Bo", claims.Name)

	// Refresh tokens are not accepted as access tokens.
	_, err = ValidateToken(pair.RefreshToken, cfg.JWTSecret)
	assert.Error(t, err)

	again, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, again.RefreshToken)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpirationMinutes = -1
	user := &models.User{Name: "Ana", Role: models.RolePatient}
	user.ID = "user-2"

	pair, err := GenerateTokens(user, cfg)
	require.NoError(t, err)

	_, err = ValidateToken(pair.AccessToken, cfg.JWTSecret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRespondErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Authentication("no token"), http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{apperrors.Authorization("nope"), http.StatusForbidden, "FORBIDDEN"},
		{apperrors.Validation("age", "age must be positive"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{apperrors.NotFound("appointment not found"), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.Conflict("full"), http.StatusConflict, "CONFLICT"},
		{apperrors.Internal("db", errors.New("secret detail")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{errors.New("untyped"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondError(c, nil, tt.err)

		assert.Equal(t, tt.status, w.Code)
		var body ResponseData
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.code, body.Code)
		assert.NotContains(t, body.Error, "secret detail")
	}
}

func TestRespondErrorIncludesField(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, nil, apperrors.Validation("weight", "weight must be positive"))

	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "weight", body.Field)
	assert.Equal(t, "weight must be positive", body.Error)
}

type sampleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age" binding:"required,gt=0"`
}

func TestBindAndValidateReportsJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req sampleRequest
		if !BindAndValidate(c, nil, &req) {
			return
		}
		Success(c, "ok", req)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email","age":3}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "email", body.Field)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","age":3}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}
