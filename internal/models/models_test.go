package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordRoundTrip(t *testing.T) {
	u := &User{Name: "Ana", Email: "ana@example.com", Role: RolePatient}
	require.NoError(t, u.SetPassword("secret123"))

	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("secret124"))
}

func TestUserSanitizeDropsPassword(t *testing.T) {
	u := &User{Name: "Dr Bo", Email: "bo@example.com", Role: RoleDoctor, Specialization: "Cardiology"}
	u.ID = "u-1"
	require.NoError(t, u.SetPassword("secret123"))

	s := u.Sanitize()
	assert.Equal(t, "u-1", s.ID)
	assert.Equal(t, "Cardiology", s.Specialization)
	assert.Equal(t, RoleDoctor, s.Role)
}

func TestAppointmentStatus(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusAccepted, StatusRescheduled} {
		assert.True(t, s.IsValid(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []AppointmentStatus{StatusDeclined, StatusCompleted} {
		assert.True(t, s.IsValid(), s)
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, AppointmentStatus("cancelled").IsValid())
}

func TestAppointmentParticipants(t *testing.T) {
	a := &Appointment{PatientID: "p", DoctorID: "d"}

	assert.True(t, a.IsParticipant("p"))
	assert.True(t, a.IsParticipant("d"))
	assert.False(t, a.IsParticipant("x"))
	assert.False(t, a.IsParticipant(""))

	assert.Equal(t, "d", a.Counterpart("p"))
	assert.Equal(t, "p", a.Counterpart("d"))
	assert.Empty(t, a.Counterpart("x"))
}

func TestReportTypeIsValid(t *testing.T) {
	assert.True(t, ReportTypeLab.IsValid())
	assert.True(t, ReportTypeOther.IsValid())
	assert.False(t, ReportType("ultrasound").IsValid())
}

func TestRefreshTokenIsActive(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, tok.IsActive(now))

	tok.IsRevoked = true
	assert.False(t, tok.IsActive(now))

	expired := &RefreshToken{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.IsActive(now))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestInitDBSqliteMigrates(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: "file:models_init?mode=memory&cache=shared"})
	require.NoError(t, err)

	for _, m := range AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	u := &User{Name: "Ana", Email: "ana@example.com", Role: RolePatient, Password: "x"}
	require.NoError(t, db.Create(u).Error)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, time.UTC, u.CreatedAt.Location())
}
