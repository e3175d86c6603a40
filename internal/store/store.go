// Package store persists identities, appointments and their derived records.
// Every method takes a context and translates gorm failures into apperrors.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"telehealth-app-server/internal/apperrors"
)

// Store groups the per-entity stores over one connection or transaction.
type Store struct {
	db *gorm.DB

	Users         *UserStore
	RefreshTokens *RefreshTokenStore
	Appointments  *AppointmentStore
	Notifications *NotificationStore
	Reports       *ReportStore
	PatientNotes  *PatientNoteStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         &UserStore{db: db},
		RefreshTokens: &RefreshTokenStore{db: db},
		Appointments:  &AppointmentStore{db: db},
		Notifications: &NotificationStore{db: db},
		Reports:       &ReportStore{db: db},
		PatientNotes:  &PatientNoteStore{db: db},
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Internal("failed to load "+what, err)
}
