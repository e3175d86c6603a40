// Package lifecycle implements the appointment state machine: booking,
// doctor-driven transitions, patient cancellation, daily capacity and the
// note and chat threads. Every mutation commits with its notification
// records in one transaction and is then handed to the relay.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/metrics"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/relay"
	"telehealth-app-server/internal/store"
)

const (
	DefaultDailyCapacity = 10
	maxAttempts          = 3
)

type Engine struct {
	store    *store.Store
	relay    relay.Relay
	metrics  *metrics.Collector
	log      *zap.Logger
	tracer   trace.Tracer
	capacity int
	loc      *time.Location
}

type Option func(*Engine)

func WithRelay(r relay.Relay) Option          { return func(e *Engine) { e.relay = r } }
func WithMetrics(m *metrics.Collector) Option { return func(e *Engine) { e.metrics = m } }
func WithLogger(l *zap.Logger) Option         { return func(e *Engine) { e.log = l } }
func WithLocation(loc *time.Location) Option  { return func(e *Engine) { e.loc = loc } }

// WithDailyCapacity sets how many accepted appointments a doctor may hold per day.
func WithDailyCapacity(n int) Option { return func(e *Engine) { e.capacity = n } }

func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		relay:    relay.Poll{},
		log:      zap.NewNop(),
		tracer:   otel.Tracer("telehealth/lifecycle"),
		capacity: DefaultDailyCapacity,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewCollector("telehealth")
	}
	return e
}

// CreateInput is a patient's booking request.
type CreateInput struct {
	DoctorID string
	Reason   string
	Datetime time.Time
	Age      int
	Weight   float64
	Severity *int
}

func (in CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.DoctorID) == "":
		return apperrors.Validation("doctorId", "doctorId is required")
	case strings.TrimSpace(in.Reason) == "":
		return apperrors.Validation("reason", "reason is required")
	case in.Datetime.IsZero():
		return apperrors.Validation("datetime", "datetime is required")
	case in.Age <= 0:
		return apperrors.Validation("age", "age must be positive")
	case in.Weight <= 0:
		return apperrors.Validation("weight", "weight must be positive")
	case in.Severity != nil && (*in.Severity < 1 || *in.Severity > 5):
		return apperrors.Validation("severity", "severity must be between 1 and 5")
	}
	return nil
}

// Create books a pending appointment with the caller as patient.
func (e *Engine) Create(ctx context.Context, caller guard.Caller, in CreateInput) (*models.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Create", trace.WithAttributes(attribute.String("doctor.id", in.DoctorID)))
	defer span.End()

	if err := guard.CanCreateAppointment(caller); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	doctor, err := e.store.Users.FindByID(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("doctor not found")
		}
		return nil, e.fail(span, err)
	}
	if doctor.Role != models.RoleDoctor {
		return nil, apperrors.NotFound("doctor not found")
	}

	a := &models.Appointment{
		PatientID: caller.UserID,
		DoctorID:  doctor.ID,
		Reason:    strings.TrimSpace(in.Reason),
		Datetime:  in.Datetime.UTC(),
		Age:       in.Age,
		Weight:    in.Weight,
		Severity:  in.Severity,
		Status:    models.StatusPending,
	}
	if err := e.store.Appointments.Create(ctx, a); err != nil {
		return nil, e.fail(span, err)
	}

	created, err := e.store.Appointments.FindByID(ctx, a.ID)
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.metrics.AppointmentsCreated.Inc()
	e.log.Info("appointment created",
		zap.String("appointment_id", created.ID),
		zap.String("patient_id", created.PatientID),
		zap.String("doctor_id", created.DoctorID))
	e.publish(ctx, relay.EventAppointmentCreated, created)
	return created, nil
}

// Get returns one appointment with its thread if the caller takes part in it.
func (e *Engine) Get(ctx context.Context, caller guard.Caller, id string) (*models.Appointment, error) {
	a, err := e.store.Appointments.FindWithThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.CanView(caller, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListMine returns the caller's appointments, scoped by role.
func (e *Engine) ListMine(ctx context.Context, caller guard.Caller) ([]models.Appointment, error) {
	return e.store.Appointments.ListForUser(ctx, caller.UserID, caller.Role)
}

// Poll returns the caller's appointments updated strictly after since.
func (e *Engine) Poll(ctx context.Context, caller guard.Caller, since time.Time) ([]models.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Poll")
	defer span.End()
	return e.store.Appointments.UpdatedSince(ctx, caller.UserID, caller.Role, since)
}

func (e *Engine) publish(ctx context.Context, kind relay.EventType, a *models.Appointment) {
	event := relay.Event{
		Type:            kind,
		Appointment:     a,
		AffectedUserIDs: []string{a.PatientID, a.DoctorID},
		Timestamp:       time.Now().UTC(),
	}
	if err := e.relay.Publish(ctx, event); err != nil {
		e.metrics.RelayDropped.Inc()
		e.log.Warn("relay publish failed",
			zap.String("appointment_id", a.ID),
			zap.String("event", string(kind)),
			zap.Error(err))
	}
}

// fail records err on the span. Typed errors pass through unchanged.
func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (e *Engine) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(e.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
	return start, start.AddDate(0, 0, 1)
}

// checkCapacity refuses to accept a when the doctor already holds the daily
// capacity of accepted appointments on a's calendar day.
func (e *Engine) checkCapacity(ctx context.Context, tx *store.Store, a *models.Appointment) error {
	start, end := e.dayBounds(a.Datetime)
	count, err := tx.Appointments.CountAcceptedBetween(ctx, a.DoctorID, start, end, a.ID)
	if err != nil {
		return err
	}
	if count >= int64(e.capacity) {
		e.metrics.CapacityRejections.Inc()
		return apperrors.Conflict(fmt.Sprintf("daily capacity of %d accepted appointments reached for %s",
			e.capacity, start.Format("2006-01-02")))
	}
	return nil
}
