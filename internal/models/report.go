package models

import (
	"time"
)

// ReportType represents the kind of uploaded medical report
type ReportType string

const (
	ReportTypeLab          ReportType = "lab"
	ReportTypeXRay         ReportType = "xray"
	ReportTypeMRI          ReportType = "mri"
	ReportTypeCT           ReportType = "ct"
	ReportTypePrescription ReportType = "prescription"
	ReportTypeDischarge    ReportType = "discharge"
	ReportTypeOther        ReportType = "other"
)

func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeLab, ReportTypeXRay, ReportTypeMRI, ReportTypeCT,
		ReportTypePrescription, ReportTypeDischarge, ReportTypeOther:
		return true
	}
	return false
}

// Report holds the metadata of a patient's uploaded file. The content lives
// in ReportBlob so list queries never touch it.
type Report struct {
	BaseModel
	PatientID     string     `gorm:"size:36;not null;index" json:"patientId"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	ReportType    ReportType `gorm:"size:20;not null;default:'other'" json:"reportType"`
	FileName      string     `gorm:"size:255;not null" json:"fileName"`
	FileType      string     `gorm:"size:100;not null" json:"fileType"`
	FileSize      int64      `gorm:"not null" json:"fileSize"`
	UploadedByID  string     `gorm:"size:36;not null" json:"uploadedById"`
	AppointmentID *string    `gorm:"size:36;index" json:"appointmentId,omitempty"`
	Date          time.Time  `json:"date"`

	// Relations
	UploadedBy *User `gorm:"foreignKey:UploadedByID" json:"uploadedBy,omitempty"`

	// FileData is populated only when a single report is fetched.
	FileData string `gorm:"-" json:"fileData,omitempty"`
}

// ReportBlob is the opaque file content of a report, keyed by report id.
type ReportBlob struct {
	ReportID string `gorm:"primaryKey;type:varchar(36)"`
	Data     []byte `gorm:"not null"`
}
