// Package relay fans out appointment changes to interested users. Delivery is
// best-effort; the appointment store stays the source of truth.
package relay

import (
	"context"
	"time"

	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/models"
)

type EventType string

const (
	EventAppointmentCreated EventType = "appointment.created"
	EventAppointmentUpdated EventType = "appointment.updated"
	EventMessageAdded       EventType = "appointment.message"
	EventNoteAdded          EventType = "appointment.note"
)

// Event is one appointment mutation addressed to AffectedUserIDs.
type Event struct {
	Type            EventType           `json:"type"`
	Appointment     *models.Appointment `json:"appointment"`
	AffectedUserIDs []string            `json:"-"`
	Timestamp       time.Time           `json:"timestamp"`
}

// Relay is what the lifecycle engine publishes to after every commit.
type Relay interface {
	Publish(ctx context.Context, event Event) error
}

// Poll is the pull strategy: nothing is pushed and clients ask the
// appointment store for rows updated after their cursor.
type Poll struct{}

func (Poll) Publish(context.Context, Event) error { return nil }

// New selects the strategy for mode. hub is only used in push mode.
func New(mode string, hub *Hub) Relay {
	if mode == config.RelayModePush && hub != nil {
		return hub
	}
	return Poll{}
}
