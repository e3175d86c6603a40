package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/relay"
	"telehealth-app-server/internal/store"
)

// UpdateInput mirrors the PATCH body. Empty or nil fields are absent.
type UpdateInput struct {
	Status      string
	NewTime     *time.Time
	MeetingLink *string
}

// isCancel reports whether the input is nothing more than a decline request.
func (in UpdateInput) isCancel() bool {
	return models.AppointmentStatus(normalizeStatus(in.Status)) == models.StatusDeclined &&
		in.NewTime == nil && in.MeetingLink == nil
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// change is a validated UpdateInput. An empty target means a link-only update.
type change struct {
	target  models.AppointmentStatus
	newTime *time.Time
	link    string
}

func planChange(in UpdateInput) (change, error) {
	var c change
	status := models.AppointmentStatus(normalizeStatus(in.Status))
	if in.MeetingLink != nil {
		c.link = strings.TrimSpace(*in.MeetingLink)
	}

	if status == "" && in.NewTime == nil && in.MeetingLink == nil {
		return c, apperrors.Validation("", "one of status, newTime or meetingLink is required")
	}
	if status != "" && !status.IsValid() {
		return c, apperrors.Validation("status", fmt.Sprintf("invalid status %q", in.Status))
	}
	if status == models.StatusPending {
		return c, apperrors.Validation("status", "an appointment cannot be moved back to pending")
	}

	if in.NewTime != nil {
		if in.NewTime.IsZero() {
			return c, apperrors.Validation("newTime", "newTime must be a valid timestamp")
		}
		if status != "" && status != models.StatusRescheduled {
			return c, apperrors.Validation("newTime", "newTime can only be combined with status rescheduled")
		}
		status = models.StatusRescheduled
		t := in.NewTime.UTC()
		c.newTime = &t
	}

	if c.link != "" && (status == models.StatusDeclined || status == models.StatusCompleted) {
		return c, apperrors.Validation("meetingLink", "a meeting link only applies to accepted or rescheduled appointments")
	}
	if status == "" && c.link == "" {
		return c, apperrors.Validation("meetingLink", "meetingLink cannot be empty")
	}

	c.target = status
	return c, nil
}

// apply mutates a in memory. It reports whether the daily capacity must be
// checked before the result may be saved.
func (c change) apply(a *models.Appointment) (bool, error) {
	if c.target == "" {
		if a.Status != models.StatusAccepted && a.Status != models.StatusRescheduled {
			return false, apperrors.Conflict(fmt.Sprintf("cannot set a meeting link on a %s appointment", a.Status))
		}
		a.MeetingLink = c.link
		return false, nil
	}

	if a.Status.IsTerminal() {
		return false, apperrors.Conflict(fmt.Sprintf("appointment is already %s", a.Status))
	}
	if !CanTransition(a.Status, c.target) {
		return false, apperrors.Conflict(fmt.Sprintf("cannot move appointment from %s to %s", a.Status, c.target))
	}

	needsCapacity := false
	switch c.target {
	case models.StatusAccepted:
		needsCapacity = a.Status != models.StatusAccepted
		switch {
		case c.link != "":
			a.MeetingLink = c.link
		case a.MeetingLink == "":
			a.MeetingLink = MeetingLinkFor(a.ID)
		}
	case models.StatusRescheduled:
		if c.newTime != nil {
			a.Datetime = *c.newTime
			rescheduled := *c.newTime
			a.RescheduledTime = &rescheduled
		}
		if c.link != "" {
			a.MeetingLink = c.link
		}
	}
	a.Status = c.target
	return needsCapacity, nil
}

// Update applies a doctor's PATCH. A patient whose request is exactly a
// decline is routed to Cancel; any other patient request is refused before
// the appointment is looked up.
func (e *Engine) Update(ctx context.Context, caller guard.Caller, id string, in UpdateInput) (*models.Appointment, error) {
	if caller.IsPatient() {
		if in.isCancel() {
			return e.Cancel(ctx, caller, id)
		}
		return nil, apperrors.Authorization("patients can only cancel their own appointments")
	}
	if !caller.IsDoctor() {
		return nil, apperrors.Authorization("only the assigned doctor can update this appointment")
	}

	ctx, span := e.tracer.Start(ctx, "lifecycle.Update", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.target_status", normalizeStatus(in.Status)),
	))
	defer span.End()

	c, err := planChange(in)
	if err != nil {
		return nil, err
	}

	a, from, err := e.transition(ctx, id, func(a *models.Appointment) (bool, error) {
		if err := guard.CanManage(caller, a); err != nil {
			return false, err
		}
		return c.apply(a)
	}, notifyCounterpart(caller))
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	target := string(c.target)
	if target == "" {
		target = "link"
	}
	e.metrics.TransitionsTotal.WithLabelValues(target, outcome).Inc()
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.log.Info("appointment updated",
		zap.String("appointment_id", a.ID),
		zap.String("doctor_id", caller.UserID),
		zap.String("from", string(from)),
		zap.String("to", string(a.Status)))
	e.publish(ctx, relay.EventAppointmentUpdated, a)
	return a, nil
}

// Cancel is the patient's decline of their own pending or accepted appointment.
func (e *Engine) Cancel(ctx context.Context, caller guard.Caller, id string) (*models.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Cancel", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	a, from, err := e.transition(ctx, id, func(a *models.Appointment) (bool, error) {
		if err := guard.CanCancel(caller, a); err != nil {
			return false, err
		}
		if !CanCancel(a.Status) {
			return false, apperrors.Conflict(fmt.Sprintf("a %s appointment cannot be cancelled", a.Status))
		}
		a.Status = models.StatusDeclined
		return false, nil
	}, notifyCounterpart(caller))
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	e.metrics.TransitionsTotal.WithLabelValues("cancelled", outcome).Inc()
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.log.Info("appointment cancelled by patient",
		zap.String("appointment_id", a.ID),
		zap.String("patient_id", caller.UserID),
		zap.String("from", string(from)))
	e.publish(ctx, relay.EventAppointmentUpdated, a)
	return a, nil
}

type mutateFunc func(a *models.Appointment) (checkCapacity bool, err error)

// transition loads the appointment, lets mutate change it and saves the
// result together with the counterpart's notification. A concurrent writer
// forces a fresh read, up to maxAttempts times.
func (e *Engine) transition(ctx context.Context, id string, mutate mutateFunc, notify notifier) (*models.Appointment, models.AppointmentStatus, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		a, err := e.store.Appointments.FindByID(ctx, id)
		if err != nil {
			return nil, "", err
		}
		from := a.Status

		checkCapacity, err := mutate(a)
		if err != nil {
			return nil, from, err
		}

		err = e.store.Transaction(ctx, func(tx *store.Store) error {
			if checkCapacity {
				if err := e.checkCapacity(ctx, tx, a); err != nil {
					return err
				}
			}
			if err := tx.Appointments.SaveTransition(ctx, a); err != nil {
				return err
			}
			return notify(ctx, tx, a, from)
		})
		if errors.Is(err, store.ErrStaleVersion) {
			e.log.Debug("appointment changed concurrently, retrying",
				zap.String("appointment_id", id),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, from, err
		}
		return a, from, nil
	}
	return nil, "", apperrors.Conflict("appointment is being modified concurrently, please retry")
}

// notifier writes the status-change notification inside the transaction.
type notifier func(ctx context.Context, tx *store.Store, a *models.Appointment, from models.AppointmentStatus) error

// notifyCounterpart notifies the participant who did not act.
func notifyCounterpart(actor guard.Caller) notifier {
	return func(ctx context.Context, tx *store.Store, a *models.Appointment, from models.AppointmentStatus) error {
		recipient := a.Counterpart(actor.UserID)
		if recipient == "" {
			return nil
		}
		title, body := statusNotice(actor, a, from)
		_, err := tx.Notifications.Notify(ctx, recipient, models.NotificationAppointment, title, body, map[string]any{
			"appointmentId": a.ID,
			"status":        a.Status,
			"previous":      from,
			"meetingLink":   a.MeetingLink,
		})
		return err
	}
}

func statusNotice(actor guard.Caller, a *models.Appointment, from models.AppointmentStatus) (string, string) {
	name := actor.Name
	if name == "" {
		name = string(actor.Role)
	}
	when := a.Datetime.Format("2006-01-02 15:04 MST")

	if a.Status == from {
		return "Meeting link updated", fmt.Sprintf("%s updated the meeting link for your appointment on %s", name, when)
	}
	switch a.Status {
	case models.StatusAccepted:
		return "Appointment accepted", fmt.Sprintf("%s accepted your appointment on %s", name, when)
	case models.StatusRescheduled:
		return "Appointment rescheduled", fmt.Sprintf("%s rescheduled your appointment to %s", name, when)
	case models.StatusCompleted:
		return "Appointment completed", fmt.Sprintf("%s marked your appointment on %s as completed", name, when)
	case models.StatusDeclined:
		if actor.IsPatient() {
			return "Appointment cancelled", fmt.Sprintf("%s cancelled the appointment on %s", name, when)
		}
		return "Appointment declined", fmt.Sprintf("%s declined your appointment on %s", name, when)
	}
	return "Appointment updated", fmt.Sprintf("%s updated your appointment on %s", name, when)
}
