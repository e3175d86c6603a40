package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

// UserStore is the Identity Store.
type UserStore struct {
	db *gorm.DB
}

// NormalizeEmail makes email lookups case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// VerifyCredential compares plaintext against the stored hash.
func (s *UserStore) VerifyCredential(user *models.User, plaintext string) bool {
	return user != nil && user.CheckPassword(plaintext)
}

// Create inserts a new user. The email must not be registered yet.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return apperrors.Internal("failed to check existing user", err)
	}
	if count > 0 {
		return apperrors.Conflict("user with this email already exists")
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return apperrors.Internal("failed to create user", err)
	}
	return nil
}

// ListDoctors returns the doctor directory ordered by name.
func (s *UserStore) ListDoctors(ctx context.Context) ([]models.User, error) {
	var doctors []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleDoctor).
		Order("name ASC").
		Find(&doctors).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list doctors", err)
	}
	return doctors, nil
}

// RefreshTokenStore keeps issued refresh tokens so they can be revoked.
type RefreshTokenStore struct {
	db *gorm.DB
}

func (s *RefreshTokenStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rt := &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt.UTC()}
	if err := s.db.WithContext(ctx).Create(rt).Error; err != nil {
		return apperrors.Internal("failed to save refresh token", err)
	}
	return nil
}

// FindActive returns the stored token only while it is unrevoked and unexpired.
func (s *RefreshTokenStore) FindActive(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authentication("invalid or expired refresh token")
		}
		return nil, apperrors.Internal("failed to load refresh token", err)
	}
	if !rt.IsActive(time.Now()) {
		return nil, apperrors.Authentication("invalid or expired refresh token")
	}
	return &rt, nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("is_revoked", true).Error
	if err != nil {
		return apperrors.Internal("failed to revoke refresh token", err)
	}
	return nil
}

// RevokeAllForUser is used on logout.
func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
	if err != nil {
		return apperrors.Internal("failed to revoke refresh tokens", err)
	}
	return nil
}
