package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/store"
	"telehealth-app-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Store *store.Store
	Cfg   *config.Config
	Log   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st *store.Store, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Store: st, Cfg: cfg, Log: log}
}

// RegisterRequest represents the request body for patient registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterDoctorRequest adds the specialization every doctor must have.
type RegisterDoctorRequest struct {
	RegisterRequest
	Specialization string `json:"specialization" binding:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Register handles patient registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}
	h.register(c, req, models.RolePatient, "")
}

// RegisterDoctor handles doctor registration.
func (h *AuthHandler) RegisterDoctor(c *gin.Context) {
	var req RegisterDoctorRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}
	specialization := strings.TrimSpace(req.Specialization)
	if specialization == "" {
		utils.RespondError(c, h.Log, apperrors.Validation("specialization", "specialization is required"))
		return
	}
	h.register(c, req.RegisterRequest, models.RoleDoctor, specialization)
}

func (h *AuthHandler) register(c *gin.Context, req RegisterRequest, role models.Role, specialization string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		utils.RespondError(c, h.Log, apperrors.Validation("name", "name is required"))
		return
	}

	user := models.User{
		Name:           name,
		Email:          req.Email,
		Role:           role,
		Specialization: specialization,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, h.Log, apperrors.Internal("failed to hash password", err))
		return
	}
	if err := h.Store.Users.Create(c.Request.Context(), &user); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	h.Log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	utils.Created(c, "User registered successfully", resp)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	user, err := h.Store.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			err = apperrors.Authentication("Invalid email or password")
		}
		utils.RespondError(c, h.Log, err)
		return
	}
	if !h.Store.Users.VerifyCredential(user, req.Password) {
		utils.RespondError(c, h.Log, apperrors.Authentication("Invalid email or password"))
		return
	}

	resp, ok := h.issueTokens(c, user)
	if !ok {
		return
	}
	utils.Success(c, "Login successful", resp)
}

// issueTokens signs a token pair, stores the refresh token and sets the
// refresh cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (*AuthResponse, bool) {
	pair, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		utils.RespondError(c, h.Log, apperrors.Internal("failed to generate tokens", err))
		return nil, false
	}
	if err := h.Store.RefreshTokens.Save(c.Request.Context(), user.ID, pair.RefreshToken, pair.RefreshExpiresAt); err != nil {
		utils.RespondError(c, h.Log, err)
		return nil, false
	}

	c.SetCookie(
		refreshCookie,
		pair.RefreshToken,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		!h.secureCookieDisabled(),
		true,
	)

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Sanitize(),
	}, true
}

func (h *AuthHandler) secureCookieDisabled() bool {
	return h.Cfg.Environment == "development" || h.Cfg.Environment == "test"
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// First try to get the refresh token from HTTP-only cookie
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, h.Log, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		utils.RespondError(c, h.Log, apperrors.Validation("refreshToken", "refreshToken is required"))
		return
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.RespondError(c, h.Log, apperrors.Authentication("Invalid or expired refresh token"))
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Store.RefreshTokens.FindActive(ctx, token)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if stored.UserID != claims.UserID {
		utils.RespondError(c, h.Log, apperrors.Authentication("Invalid or expired refresh token"))
		return
	}

	user, err := h.Store.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			err = apperrors.Authentication("Invalid or expired refresh token")
		}
		utils.RespondError(c, h.Log, err)
		return
	}

	if err := h.Store.RefreshTokens.Revoke(ctx, token); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	resp, ok := h.issueTokens(c, user)
	if !ok {
		return
	}
	utils.Success(c, "Access token refreshed successfully", resp)
}

// Logout revokes every refresh token of the caller and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	if err := h.Store.RefreshTokens.RevokeAllForUser(c.Request.Context(), caller.UserID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", !h.secureCookieDisabled(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	user, err := h.Store.Users.FindByID(c.Request.Context(), caller.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}
