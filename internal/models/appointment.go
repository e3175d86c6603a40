package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusAccepted    AppointmentStatus = "accepted"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusDeclined    AppointmentStatus = "declined"
	StatusCompleted   AppointmentStatus = "completed"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRescheduled, StatusDeclined, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change, chat or link update is accepted.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCompleted
}

// Appointment is the aggregate root for a booking. PatientID and DoctorID are
// fixed at creation. Notes and Messages are owned child rows and only ever
// appended. Version increments on every mutation.
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID        string            `gorm:"size:36;not null;index:idx_appointments_doctor_day,priority:1" json:"doctorId"`
	Reason          string            `gorm:"type:text;not null" json:"reason"`
	Datetime        time.Time         `gorm:"not null;index:idx_appointments_doctor_day,priority:3" json:"datetime"`
	Age             int               `gorm:"not null" json:"age"`
	Weight          float64           `gorm:"not null" json:"weight"`
	Severity        *int              `json:"severity,omitempty"`
	Status          AppointmentStatus `gorm:"size:20;not null;default:'pending';index:idx_appointments_doctor_day,priority:2" json:"status"`
	RescheduledTime *time.Time        `json:"rescheduledTime,omitempty"`
	MeetingLink     string            `gorm:"size:255" json:"meetingLink,omitempty"`
	Version         int               `gorm:"not null;default:1" json:"-"`

	// Relations
	Patient  *User             `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor   *User             `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Notes    []AppointmentNote `gorm:"foreignKey:AppointmentID" json:"notes"`
	Messages []ChatMessage     `gorm:"foreignKey:AppointmentID" json:"messages"`
}

// IsParticipant reports whether userID is the patient or the doctor of the appointment.
func (a *Appointment) IsParticipant(userID string) bool {
	return userID != "" && (a.PatientID == userID || a.DoctorID == userID)
}

// Counterpart returns the other participant's id, or "" if userID is not a participant.
func (a *Appointment) Counterpart(userID string) string {
	switch userID {
	case a.PatientID:
		return a.DoctorID
	case a.DoctorID:
		return a.PatientID
	}
	return ""
}

// AppointmentNote is a clinical note written by the appointment's doctor.
type AppointmentNote struct {
	BaseModel
	AppointmentID string `gorm:"size:36;not null;index" json:"appointmentId"`
	AuthorID      string `gorm:"size:36;not null" json:"authorId"`
	Text          string `gorm:"type:text;not null" json:"text"`
	Seq           int    `gorm:"not null" json:"-"` // appointment version after the append

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
