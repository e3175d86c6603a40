package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

type NotificationStore struct {
	db *gorm.DB
}

// Notify records one notification for userID. data is marshalled into the
// JSON column and may be nil.
func (s *NotificationStore) Notify(ctx context.Context, userID string, kind models.NotificationType, title, body string, data map[string]any) (*models.Notification, error) {
	raw := datatypes.JSON("{}")
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, apperrors.Internal("failed to encode notification data", err)
		}
		raw = datatypes.JSON(b)
	}

	n := &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   raw,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, apperrors.Internal("failed to create notification", err)
	}
	return n, nil
}

// ListForUser returns the newest notifications first. limit is clamped to
// (0, MaxNotificationLimit] with DefaultNotificationLimit for non-positive values.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	var list []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list notifications", err)
	}
	return list, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read. Other users'
// notifications are reported as not found.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFoundOr(err, "notification")
	}
	if n.Read {
		return &n, nil
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&n).Updates(map[string]any{"is_read": true, "read_at": now}).Error
	if err != nil {
		return nil, apperrors.Internal("failed to update notification", err)
	}
	n.Read = true
	n.ReadAt = &now
	return &n, nil
}

// MarkAllRead returns the number of notifications that changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, apperrors.Internal("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}
