// Package guard decides whether a caller may act on an appointment or on a
// patient's records. Appointment checks hide appointments the caller is not
// part of behind a not-found error; role mismatches on an appointment the
// caller does take part in are reported as authorization failures.
package guard

import (
	"context"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

// Caller is the authenticated identity of the current request.
type Caller struct {
	UserID string
	Role   models.Role
	Name   string
}

func (c Caller) IsDoctor() bool  { return c.Role == models.RoleDoctor }
func (c Caller) IsPatient() bool { return c.Role == models.RolePatient }

// Relationships answers whether a doctor has ever had an appointment with a patient.
type Relationships interface {
	HasRelationship(ctx context.Context, doctorID, patientID string) (bool, error)
}

// Guard evaluates access rules. The zero value is unusable; use New.
type Guard struct {
	rel Relationships
}

func New(rel Relationships) *Guard {
	return &Guard{rel: rel}
}

var errAppointmentNotFound = apperrors.NotFound("appointment not found")

// CanCreateAppointment allows any patient. The new record's patient is the caller.
func CanCreateAppointment(c Caller) error {
	if !c.IsPatient() {
		return apperrors.Authorization("only patients can book appointments")
	}
	return nil
}

// CanView allows the patient and the doctor of the appointment.
func CanView(c Caller, a *models.Appointment) error {
	if !a.IsParticipant(c.UserID) {
		return errAppointmentNotFound
	}
	return nil
}

// CanAccessChat is the rule for reading and appending chat messages.
func CanAccessChat(c Caller, a *models.Appointment) error {
	return CanView(c, a)
}

// CanManage allows only the assigned doctor to change status or meeting link.
func CanManage(c Caller, a *models.Appointment) error {
	if err := CanView(c, a); err != nil {
		return err
	}
	if !c.IsDoctor() || a.DoctorID != c.UserID {
		return apperrors.Authorization("only the assigned doctor can update this appointment")
	}
	return nil
}

// CanAppendNote allows only the assigned doctor, in any status.
func CanAppendNote(c Caller, a *models.Appointment) error {
	if err := CanView(c, a); err != nil {
		return err
	}
	if !c.IsDoctor() || a.DoctorID != c.UserID {
		return apperrors.Authorization("only the assigned doctor can add notes")
	}
	return nil
}

// CanCancel allows only the appointment's own patient. The allowed source
// states are the lifecycle engine's concern.
func CanCancel(c Caller, a *models.Appointment) error {
	if err := CanView(c, a); err != nil {
		return err
	}
	if !c.IsPatient() || a.PatientID != c.UserID {
		return apperrors.Authorization("only the patient can cancel this appointment")
	}
	return nil
}

// CanReadPatientRecords covers a single report or a patient's report list:
// the patient themself, or a doctor with at least one appointment with them.
func (g *Guard) CanReadPatientRecords(ctx context.Context, c Caller, patientID string) error {
	if c.IsPatient() && c.UserID == patientID {
		return nil
	}
	if !c.IsDoctor() {
		return apperrors.Authorization("access denied")
	}
	return g.requireRelationship(ctx, c, patientID, "you do not have access to this patient's records")
}

// CanListPatientReports is the doctor-side listing of another patient's reports.
func (g *Guard) CanListPatientReports(ctx context.Context, c Caller, patientID string) error {
	if !c.IsDoctor() {
		return apperrors.Authorization("access denied. doctors only")
	}
	return g.requireRelationship(ctx, c, patientID, "you do not have access to this patient's reports")
}

// CanDeleteReport allows only the owning patient. Anyone else gets not-found.
func CanDeleteReport(c Caller, r *models.Report) error {
	if r.PatientID != c.UserID {
		return apperrors.NotFound("report not found")
	}
	return nil
}

// CanManagePatientNotes gates the doctor's notes about a patient.
func (g *Guard) CanManagePatientNotes(ctx context.Context, c Caller, patientID string) error {
	if !c.IsDoctor() {
		return apperrors.Authorization("only doctors can manage patient notes")
	}
	return g.requireRelationship(ctx, c, patientID, "you do not have an appointment with this patient")
}

func (g *Guard) requireRelationship(ctx context.Context, c Caller, patientID, msg string) error {
	ok, err := g.rel.HasRelationship(ctx, c.UserID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Authorization(msg)
	}
	return nil
}
