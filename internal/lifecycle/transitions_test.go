package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"telehealth-app-server/internal/models"
)

func TestCanTransitionTerminal(t *testing.T) {
	for _, from := range []models.AppointmentStatus{models.StatusDeclined, models.StatusCompleted} {
		for _, to := range []models.AppointmentStatus{
			models.StatusPending, models.StatusAccepted, models.StatusRescheduled,
			models.StatusDeclined, models.StatusCompleted,
		} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNothingReturnsToPending(t *testing.T) {
	for _, from := range []models.AppointmentStatus{models.StatusPending, models.StatusAccepted, models.StatusRescheduled} {
		assert.False(t, CanTransition(from, models.StatusPending), from)
	}
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(models.StatusPending))
	assert.True(t, CanCancel(models.StatusAccepted))
	assert.False(t, CanCancel(models.StatusRescheduled))
	assert.False(t, CanCancel(models.StatusCompleted))
	assert.False(t, CanCancel(models.StatusDeclined))
}

func TestMeetingLinkForIsDeterministic(t *testing.T) {
	assert.Equal(t, MeetingLinkFor("abc"), MeetingLinkFor("abc"))
	assert.NotEqual(t, MeetingLinkFor("abc"), MeetingLinkFor("abd"))
	assert.Equal(t, "jitsi:health-abc", MeetingLinkFor("abc"))
}
