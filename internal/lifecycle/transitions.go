package lifecycle

import "telehealth-app-server/internal/models"

// transitions lists the statuses reachable from each non-terminal status.
// accepted -> accepted is the idempotent re-accept. Terminal statuses have no entry.
var transitions = map[models.AppointmentStatus]map[models.AppointmentStatus]bool{
	models.StatusPending: {
		models.StatusAccepted:    true,
		models.StatusRescheduled: true,
		models.StatusDeclined:    true,
	},
	models.StatusAccepted: {
		models.StatusAccepted:    true,
		models.StatusCompleted:   true,
		models.StatusRescheduled: true,
		models.StatusDeclined:    true,
	},
	models.StatusRescheduled: {
		models.StatusAccepted:    true,
		models.StatusRescheduled: true,
		models.StatusDeclined:    true,
		models.StatusCompleted:   true,
	},
}

// CanTransition reports whether the doctor-driven transition from -> to is allowed.
func CanTransition(from, to models.AppointmentStatus) bool {
	return transitions[from][to]
}

// CanCancel reports whether a patient may cancel an appointment in status s.
func CanCancel(s models.AppointmentStatus) bool {
	return s == models.StatusPending || s == models.StatusAccepted
}

// MeetingLinkFor derives the video room of an appointment. It depends on the
// id only, so re-deriving always yields the same link.
func MeetingLinkFor(appointmentID string) string {
	return "jitsi:health-" + appointmentID
}
