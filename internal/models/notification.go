package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationMessage     NotificationType = "message"
	NotificationAppointment NotificationType = "appointment"
	NotificationReport      NotificationType = "report"
	NotificationGeneral     NotificationType = "general"
)

// Notification is an informational, per-recipient record derived from
// appointment and report activity. Only Read/ReadAt change after creation.
type Notification struct {
	BaseModel
	UserID string           `gorm:"size:36;not null;index" json:"userId"`
	Type   NotificationType `gorm:"size:20;not null;default:'general'" json:"type"`
	Title  string           `gorm:"size:255" json:"title"`
	Body   string           `gorm:"type:text" json:"body"`
	Data   datatypes.JSON   `json:"data"`
	Read   bool             `gorm:"column:is_read;not null;default:false;index" json:"read"`
	ReadAt *time.Time       `json:"readAt,omitempty"`
}
