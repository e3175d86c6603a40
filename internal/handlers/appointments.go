package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/lifecycle"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// defaultPollWindow is used when a poll carries no lastUpdate.
const defaultPollWindow = time.Minute

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Engine *lifecycle.Engine
	Log    *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(engine *lifecycle.Engine, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{Engine: engine, Log: log}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID string    `json:"doctorId" binding:"required"`
	Reason   string    `json:"reason" binding:"required"`
	Datetime time.Time `json:"datetime" binding:"required"`
	Age      int       `json:"age" binding:"required"`
	Weight   float64   `json:"weight" binding:"required"`
	Severity *int      `json:"severity"`
}

// CreateAppointment books an appointment for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	appointment, err := h.Engine.Create(c.Request.Context(), caller, lifecycle.CreateInput{
		DoctorID: req.DoctorID,
		Reason:   req.Reason,
		Datetime: req.Datetime,
		Age:      req.Age,
		Weight:   req.Weight,
		Severity: req.Severity,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Appointment created successfully", appointment)
}

// GetMyAppointments lists the caller's appointments. Patients see the ones
// they booked, doctors the ones assigned to them.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	appointments, err := h.Engine.ListMine(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", nonNil(appointments))
}

// GetAppointmentByID returns one appointment with its notes and messages.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	appointment, err := h.Engine.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentRequest is the PATCH body. Every field is optional but
// at least one must be present.
type UpdateAppointmentRequest struct {
	Status      string     `json:"status"`
	NewTime     *time.Time `json:"newTime"`
	MeetingLink *string    `json:"meetingLink"`
}

// UpdateAppointment applies a status or meeting link change.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	appointment, err := h.Engine.Update(c.Request.Context(), caller, c.Param("id"), lifecycle.UpdateInput{
		Status:      req.Status,
		NewTime:     req.NewTime,
		MeetingLink: req.MeetingLink,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appointment)
}

// CancelAppointment lets a patient decline their own appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	appointment, err := h.Engine.Cancel(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// TextRequest is the body of note and message appends.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddNote appends a clinical note. Only the assigned doctor may write notes.
func (h *AppointmentHandler) AddNote(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var req TextRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	appointment, err := h.Engine.AppendNote(c.Request.Context(), caller, c.Param("id"), req.Text)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Note added successfully", appointment)
}

// PollResponse carries the changed appointments and the cursor for the
// next poll.
type PollResponse struct {
	Appointments []models.Appointment `json:"appointments"`
	Timestamp    time.Time            `json:"timestamp"`
}

// Poll returns the caller's appointments changed after lastUpdate.
func (h *AppointmentHandler) Poll(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	// Taken before the query so nothing committed meanwhile is skipped.
	now := time.Now().UTC()

	since, err := parseLastUpdate(c.Query("lastUpdate"), now)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	appointments, err := h.Engine.Poll(c.Request.Context(), caller, since)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Updates fetched successfully", PollResponse{
		Appointments: nonNil(appointments),
		Timestamp:    now,
	})
}

// parseLastUpdate accepts an RFC 3339 time or Unix milliseconds.
func parseLastUpdate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-defaultPollWindow), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, apperrors.Validation("lastUpdate", "lastUpdate must be an RFC 3339 timestamp or Unix milliseconds")
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
