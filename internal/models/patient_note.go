package models

// PatientNote is a doctor's free-form note about a patient, independent of
// any single appointment.
type PatientNote struct {
	BaseModel
	PatientID string `gorm:"size:36;not null;index:idx_patient_notes_pair,priority:2" json:"patientId"`
	DoctorID  string `gorm:"size:36;not null;index:idx_patient_notes_pair,priority:1" json:"doctorId"`
	Title     string `gorm:"size:255" json:"title,omitempty"`
	Content   string `gorm:"type:text;not null" json:"content"`
}
