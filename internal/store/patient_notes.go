package store

import (
	"context"

	"gorm.io/gorm"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

type PatientNoteStore struct {
	db *gorm.DB
}

func (s *PatientNoteStore) Create(ctx context.Context, note *models.PatientNote) error {
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return apperrors.Internal("failed to create patient note", err)
	}
	return nil
}

// ListByDoctorForPatient returns the doctor's own notes about a patient, newest first.
func (s *PatientNoteStore) ListByDoctorForPatient(ctx context.Context, doctorID, patientID string) ([]models.PatientNote, error) {
	var notes []models.PatientNote
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list patient notes", err)
	}
	return notes, nil
}

// FindOwned loads a note written by doctorID. Notes of other doctors are not found.
func (s *PatientNoteStore) FindOwned(ctx context.Context, id, doctorID string) (*models.PatientNote, error) {
	var note models.PatientNote
	if err := s.db.WithContext(ctx).Where("id = ? AND doctor_id = ?", id, doctorID).First(&note).Error; err != nil {
		return nil, notFoundOr(err, "note")
	}
	return &note, nil
}

func (s *PatientNoteStore) Update(ctx context.Context, note *models.PatientNote) error {
	err := s.db.WithContext(ctx).Model(note).
		Select("title", "content", "updated_at").
		Updates(note).Error
	if err != nil {
		return apperrors.Internal("failed to update patient note", err)
	}
	return nil
}

func (s *PatientNoteStore) Delete(ctx context.Context, id, doctorID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND doctor_id = ?", id, doctorID).Delete(&models.PatientNote{})
	if res.Error != nil {
		return apperrors.Internal("failed to delete patient note", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("note not found")
	}
	return nil
}
