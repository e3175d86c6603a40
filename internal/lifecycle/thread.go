package lifecycle

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/relay"
	"telehealth-app-server/internal/store"
)

// AppendNote adds a clinical note. Notes stay writable in every status so
// doctors can document after the visit.
func (e *Engine) AppendNote(ctx context.Context, caller guard.Caller, id, text string) (*models.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.AppendNote", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("text", "note text is required")
	}

	a, err := e.store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.CanAppendNote(caller, a); err != nil {
		return nil, err
	}

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		return tx.Appointments.AppendNote(ctx, &models.AppointmentNote{
			AppointmentID: a.ID,
			AuthorID:      caller.UserID,
			Text:          text,
		})
	})
	if err != nil {
		return nil, e.fail(span, err)
	}

	updated, err := e.store.Appointments.FindWithThread(ctx, id)
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.metrics.NotesAppended.Inc()
	e.log.Info("appointment note added", zap.String("appointment_id", id), zap.String("doctor_id", caller.UserID))
	e.publish(ctx, relay.EventNoteAdded, updated)
	return updated, nil
}

// ListMessages returns the chat transcript in append order. History stays
// readable after the chat is closed.
func (e *Engine) ListMessages(ctx context.Context, caller guard.Caller, id string) ([]models.ChatMessage, error) {
	a, err := e.store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.CanAccessChat(caller, a); err != nil {
		return nil, err
	}
	return e.store.Appointments.ListMessages(ctx, id)
}

// AppendMessage adds a chat message from either participant while the
// appointment is not declined or completed, and returns the full transcript.
func (e *Engine) AppendMessage(ctx context.Context, caller guard.Caller, id, text string) ([]models.ChatMessage, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.AppendMessage", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("text", "message text is required")
	}

	a, err := e.store.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.CanAccessChat(caller, a); err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, apperrors.Conflict("chat is closed for this appointment")
	}

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Appointments.AppendMessage(ctx, &models.ChatMessage{
			AppointmentID: a.ID,
			AuthorID:      caller.UserID,
			Text:          text,
		}); err != nil {
			return err
		}

		// The append holds the row, so this read sees any transition that
		// committed after the check above.
		current, err := tx.Appointments.FindByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return apperrors.Conflict("chat is closed for this appointment")
		}

		_, err = tx.Notifications.Notify(ctx, a.Counterpart(caller.UserID), models.NotificationMessage,
			"New message", messagePreview(caller, text), map[string]any{
				"appointmentId": a.ID,
				"from":          caller.UserID,
			})
		return err
	})
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.metrics.MessagesAppended.Inc()
	e.log.Debug("chat message added", zap.String("appointment_id", id), zap.String("author_id", caller.UserID))

	if updated, err := e.store.Appointments.FindByID(ctx, id); err == nil {
		e.publish(ctx, relay.EventMessageAdded, updated)
	}
	return e.store.Appointments.ListMessages(ctx, id)
}

func messagePreview(caller guard.Caller, text string) string {
	const previewLen = 120
	if r := []rune(text); len(r) > previewLen {
		text = string(r[:previewLen]) + "..."
	}
	if caller.Name == "" {
		return text
	}
	return caller.Name + ": " + text
}
