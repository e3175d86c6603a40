package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

// ReportStore keeps report metadata and, separately, the opaque file blobs.
type ReportStore struct {
	db *gorm.DB
}

// Create stores the metadata and the content in one transaction.
func (s *ReportStore) Create(ctx context.Context, report *models.Report, data []byte) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(report).Error; err != nil {
			return apperrors.Internal("failed to create report", err)
		}
		blob := &models.ReportBlob{ReportID: report.ID, Data: data}
		if err := tx.Create(blob).Error; err != nil {
			return apperrors.Internal("failed to store report content", err)
		}
		return nil
	})
}

func (s *ReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).Preload("UploadedBy").First(&r, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "report")
	}
	return &r, nil
}

// Content returns the stored bytes of a report.
func (s *ReportStore) Content(ctx context.Context, reportID string) ([]byte, error) {
	var blob models.ReportBlob
	if err := s.db.WithContext(ctx).First(&blob, "report_id = ?", reportID).Error; err != nil {
		return nil, notFoundOr(err, "report content")
	}
	return blob.Data, nil
}

// ListForPatient returns metadata only, newest first.
func (s *ReportStore) ListForPatient(ctx context.Context, patientID string) ([]models.Report, error) {
	var list []models.Report
	err := s.db.WithContext(ctx).
		Preload("UploadedBy").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list reports", err)
	}
	return list, nil
}

func (s *ReportStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ReportBlob{}, "report_id = ?", id).Error; err != nil {
			return apperrors.Internal("failed to delete report content", err)
		}
		res := tx.Delete(&models.Report{}, "id = ?", id)
		if res.Error != nil {
			return apperrors.Internal("failed to delete report", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("report not found")
		}
		return nil
	})
}
