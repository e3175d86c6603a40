package models

// ChatMessage is one entry of an appointment's chat transcript. The author is
// always the patient or the doctor of that appointment.
type ChatMessage struct {
	BaseModel
	AppointmentID string `gorm:"size:36;not null;index" json:"appointmentId"`
	AuthorID      string `gorm:"size:36;not null;index" json:"authorId"`
	Text          string `gorm:"type:text;not null" json:"text"`
	Seq           int    `gorm:"not null" json:"-"` // appointment version after the append

	// Relations
	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
