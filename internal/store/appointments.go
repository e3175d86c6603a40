package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

// ErrStaleVersion is returned when an optimistic update lost a race.
var ErrStaleVersion = errors.New("appointment was modified concurrently")

// AppointmentStore owns appointments together with their notes and chat messages.
type AppointmentStore struct {
	db *gorm.DB
}

func (s *AppointmentStore) withParties(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Patient").Preload("Doctor")
}

// scopeFor restricts a query to appointments the user takes part in.
func scopeFor(userID string, role models.Role) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if role == models.RoleDoctor {
			return db.Where("doctor_id = ?", userID)
		}
		return db.Where("patient_id = ?", userID)
	}
}

func (s *AppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	a.Version = 1
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return apperrors.Internal("failed to create appointment", err)
	}
	return nil
}

// FindByID loads the appointment with both parties but without its thread.
func (s *AppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.withParties(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "appointment")
	}
	return &a, nil
}

// FindWithThread also loads notes and messages in append order.
func (s *AppointmentStore) FindWithThread(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := s.withParties(ctx).
		Preload("Notes", orderBySeq).
		Preload("Notes.Author").
		Preload("Messages", orderBySeq).
		Preload("Messages.Author").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "appointment")
	}
	return &a, nil
}

func orderBySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// ListForUser returns every appointment the user is a party to, latest first.
func (s *AppointmentStore) ListForUser(ctx context.Context, userID string, role models.Role) ([]models.Appointment, error) {
	var list []models.Appointment
	err := s.withParties(ctx).
		Scopes(scopeFor(userID, role)).
		Order("datetime DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list appointments", err)
	}
	return list, nil
}

// UpdatedSince returns the user's appointments with updated_at strictly after since.
func (s *AppointmentStore) UpdatedSince(ctx context.Context, userID string, role models.Role, since time.Time) ([]models.Appointment, error) {
	var list []models.Appointment
	err := s.withParties(ctx).
		Scopes(scopeFor(userID, role)).
		Where("updated_at > ?", since.UTC()).
		Order("updated_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperrors.Internal("failed to poll appointments", err)
	}
	return list, nil
}

// CountAcceptedBetween counts the doctor's accepted appointments with a
// datetime in [start, end), ignoring excludeID.
func (s *AppointmentStore) CountAcceptedBetween(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND status = ?", doctorID, models.StatusAccepted).
		Where("datetime >= ? AND datetime < ?", start.UTC(), end.UTC()).
		Where("id <> ?", excludeID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("failed to count accepted appointments", err)
	}
	return count, nil
}

// HasRelationship reports whether at least one appointment links doctor and patient.
func (s *AppointmentStore) HasRelationship(ctx context.Context, doctorID, patientID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("failed to check doctor-patient relationship", err)
	}
	return count > 0, nil
}

// BelongsToPatient reports whether the appointment exists and is the patient's.
func (s *AppointmentStore) BelongsToPatient(ctx context.Context, appointmentID, patientID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND patient_id = ?", appointmentID, patientID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("failed to check appointment owner", err)
	}
	return count > 0, nil
}

// SaveTransition writes the mutable lifecycle fields if the stored version
// still equals a.Version, then advances a.Version. A lost race yields
// ErrStaleVersion and writes nothing.
func (s *AppointmentStore) SaveTransition(ctx context.Context, a *models.Appointment) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]any{
			"status":           a.Status,
			"meeting_link":     a.MeetingLink,
			"datetime":         a.Datetime.UTC(),
			"rescheduled_time": a.RescheduledTime,
			"version":          a.Version + 1,
			"updated_at":       now,
		})
	if res.Error != nil {
		return apperrors.Internal("failed to update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	a.Version++
	a.UpdatedAt = now
	return nil
}

// touch advances version and updated_at. On row-locking backends the update
// also holds the appointment row until the surrounding transaction ends.
func (s *AppointmentStore) touch(ctx context.Context, id string) (int, error) {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, apperrors.Internal("failed to update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.NotFound("appointment not found")
	}

	var a models.Appointment
	if err := s.db.WithContext(ctx).Select("version").First(&a, "id = ?", id).Error; err != nil {
		return 0, notFoundOr(err, "appointment")
	}
	return a.Version, nil
}

// AppendNote inserts a clinical note. Call it inside Store.Transaction so the
// version bump and the insert commit together.
func (s *AppointmentStore) AppendNote(ctx context.Context, note *models.AppointmentNote) error {
	seq, err := s.touch(ctx, note.AppointmentID)
	if err != nil {
		return err
	}
	note.Seq = seq
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(note).Error; err != nil {
		return apperrors.Internal("failed to append note", err)
	}
	return nil
}

// AppendMessage inserts a chat message, with the same transaction contract as AppendNote.
func (s *AppointmentStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	seq, err := s.touch(ctx, msg.AppointmentID)
	if err != nil {
		return err
	}
	msg.Seq = seq
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		return apperrors.Internal("failed to append message", err)
	}
	return nil
}

// ListMessages returns the chat transcript in append order.
func (s *AppointmentStore) ListMessages(ctx context.Context, appointmentID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("appointment_id = ?", appointmentID).
		Order("seq ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list messages", err)
	}
	return msgs, nil
}
