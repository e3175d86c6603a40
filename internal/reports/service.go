package reports

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/metrics"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/store"
)

// Service exposes report operations with their access rules applied.
type Service struct {
	store    *store.Store
	guard    *guard.Guard
	metrics  *metrics.Collector
	log      *zap.Logger
	maxBytes int64
}

func NewService(st *store.Store, g *guard.Guard, m *metrics.Collector, log *zap.Logger, maxBytes int64) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewCollector("telehealth")
	}
	return &Service{store: st, guard: g, metrics: m, log: log, maxBytes: maxBytes}
}

// Upload stores a report for the calling patient.
func (s *Service) Upload(ctx context.Context, caller guard.Caller, u Upload) (*models.Report, error) {
	if !caller.IsPatient() {
		return nil, apperrors.Authorization("only patients can upload reports")
	}

	file, err := Validate(u, s.maxBytes)
	if err != nil {
		return nil, err
	}

	var appointmentID *string
	if id := strings.TrimSpace(u.AppointmentID); id != "" {
		ok, err := s.store.Appointments.BelongsToPatient(ctx, id, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Validation("appointmentId", "appointment not found")
		}
		appointmentID = &id
	}

	report := &models.Report{
		PatientID:     caller.UserID,
		Title:         strings.TrimSpace(u.Title),
		Description:   strings.TrimSpace(u.Description),
		ReportType:    file.ReportType,
		FileName:      filepath.Base(strings.TrimSpace(u.FileName)),
		FileType:      file.ContentType,
		FileSize:      int64(len(file.Data)),
		UploadedByID:  caller.UserID,
		AppointmentID: appointmentID,
		Date:          time.Now().UTC(),
	}
	if err := s.store.Reports.Create(ctx, report, file.Data); err != nil {
		return nil, err
	}

	s.metrics.ReportsUploaded.Inc()
	s.log.Info("report uploaded",
		zap.String("report_id", report.ID),
		zap.String("patient_id", caller.UserID),
		zap.String("file_type", report.FileType),
		zap.Int64("file_size", report.FileSize))

	return s.store.Reports.FindByID(ctx, report.ID)
}

// ListMine returns the caller's own reports without content.
func (s *Service) ListMine(ctx context.Context, caller guard.Caller) ([]models.Report, error) {
	return s.store.Reports.ListForPatient(ctx, caller.UserID)
}

// ListForPatient is the doctor view of a patient's reports.
func (s *Service) ListForPatient(ctx context.Context, caller guard.Caller, patientID string) ([]models.Report, error) {
	if err := s.guard.CanListPatientReports(ctx, caller, patientID); err != nil {
		return nil, err
	}
	return s.store.Reports.ListForPatient(ctx, patientID)
}

// Get returns one report including its content.
func (s *Service) Get(ctx context.Context, caller guard.Caller, id string) (*models.Report, error) {
	report, err := s.store.Reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanReadPatientRecords(ctx, caller, report.PatientID); err != nil {
		return nil, err
	}

	data, err := s.store.Reports.Content(ctx, id)
	if err != nil {
		return nil, err
	}
	report.FileData = EncodeDataURL(report.FileType, data)
	return report, nil
}

// Delete removes one of the caller's own reports.
func (s *Service) Delete(ctx context.Context, caller guard.Caller, id string) error {
	report, err := s.store.Reports.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := guard.CanDeleteReport(caller, report); err != nil {
		return err
	}
	if err := s.store.Reports.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("report deleted", zap.String("report_id", id), zap.String("patient_id", caller.UserID))
	return nil
}
