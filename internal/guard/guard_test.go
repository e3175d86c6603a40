package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

type fakeRelationships map[[2]string]bool

func (f fakeRelationships) HasRelationship(_ context.Context, doctorID, patientID string) (bool, error) {
	return f[[2]string{doctorID, patientID}], nil
}

type failingRelationships struct{}

func (failingRelationships) HasRelationship(context.Context, string, string) (bool, error) {
	return false, apperrors.Internal("db down", errors.New("boom"))
}

var (
	patient  = Caller{UserID: "p1", Role: models.RolePatient}
	other    = Caller{UserID: "p2", Role: models.RolePatient}
	doctor   = Caller{UserID: "d1", Role: models.RoleDoctor}
	stranger = Caller{UserID: "d2", Role: models.RoleDoctor}
)

func appointment() *models.Appointment {
	return &models.Appointment{PatientID: "p1", DoctorID: "d1", Status: models.StatusPending}
}

func TestCanCreateAppointment(t *testing.T) {
	assert.NoError(t, CanCreateAppointment(patient))
	assert.ErrorIs(t, CanCreateAppointment(doctor), apperrors.ErrAuthorization)
}

func TestAppointmentRules(t *testing.T) {
	a := appointment()

	tests := []struct {
		name   string
		check  func(Caller, *models.Appointment) error
		caller Caller
		want   error
	}{
		{"view patient", CanView, patient, nil},
		{"view doctor", CanView, doctor, nil},
		{"view other patient", CanView, other, apperrors.ErrNotFound},
		{"view other doctor", CanView, stranger, apperrors.ErrNotFound},
		{"chat patient", CanAccessChat, patient, nil},
		{"chat stranger", CanAccessChat, stranger, apperrors.ErrNotFound},
		{"manage doctor", CanManage, doctor, nil},
		{"manage patient", CanManage, patient, apperrors.ErrAuthorization},
		{"manage stranger", CanManage, stranger, apperrors.ErrNotFound},
		{"note doctor", CanAppendNote, doctor, nil},
		{"note patient", CanAppendNote, patient, apperrors.ErrAuthorization},
		{"note stranger", CanAppendNote, other, apperrors.ErrNotFound},
		{"cancel patient", CanCancel, patient, nil},
		{"cancel doctor", CanCancel, doctor, apperrors.ErrAuthorization},
		{"cancel other patient", CanCancel, other, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.caller, a)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPatientRecordRules(t *testing.T) {
	g := New(fakeRelationships{{"d1", "p1"}: true})
	ctx := context.Background()

	assert.NoError(t, g.CanReadPatientRecords(ctx, patient, "p1"))
	assert.NoError(t, g.CanReadPatientRecords(ctx, doctor, "p1"))
	assert.ErrorIs(t, g.CanReadPatientRecords(ctx, other, "p1"), apperrors.ErrAuthorization)
	assert.ErrorIs(t, g.CanReadPatientRecords(ctx, stranger, "p1"), apperrors.ErrAuthorization)

	assert.NoError(t, g.CanListPatientReports(ctx, doctor, "p1"))
	assert.ErrorIs(t, g.CanListPatientReports(ctx, patient, "p1"), apperrors.ErrAuthorization)
	assert.ErrorIs(t, g.CanListPatientReports(ctx, stranger, "p1"), apperrors.ErrAuthorization)

	assert.NoError(t, g.CanManagePatientNotes(ctx, doctor, "p1"))
	assert.ErrorIs(t, g.CanManagePatientNotes(ctx, stranger, "p1"), apperrors.ErrAuthorization)
	assert.ErrorIs(t, g.CanManagePatientNotes(ctx, patient, "p1"), apperrors.ErrAuthorization)
}

func TestRelationshipLookupFailureIsInternal(t *testing.T) {
	g := New(failingRelationships{})
	err := g.CanManagePatientNotes(context.Background(), doctor, "p1")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestCanDeleteReport(t *testing.T) {
	r := &models.Report{PatientID: "p1"}
	assert.NoError(t, CanDeleteReport(patient, r))
	assert.ErrorIs(t, CanDeleteReport(doctor, r), apperrors.ErrNotFound)
}
