package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/store"
	"telehealth-app-server/internal/utils"
)

// PatientNoteHandler serves a doctor's private notes about their patients.
// Doctors only see and change the notes they wrote themselves.
type PatientNoteHandler struct {
	Store *store.Store
	Guard *guard.Guard
	Log   *zap.Logger
}

func NewPatientNoteHandler(st *store.Store, g *guard.Guard, log *zap.Logger) *PatientNoteHandler {
	return &PatientNoteHandler{Store: st, Guard: g, Log: log}
}

type CreatePatientNoteRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	Title     string `json:"title"`
	Content   string `json:"content" binding:"required"`
}

type UpdatePatientNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// GetNotesForPatient lists the caller's notes about one patient.
func (h *PatientNoteHandler) GetNotesForPatient(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	patientID := c.Param("patientId")
	if err := h.Guard.CanManagePatientNotes(ctx, caller, patientID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	notes, err := h.Store.PatientNotes.ListByDoctorForPatient(ctx, caller.UserID, patientID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patient notes fetched successfully", nonNil(notes))
}

// CreateNote adds a note about a patient the doctor has an appointment with.
func (h *PatientNoteHandler) CreateNote(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var req CreatePatientNoteRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		utils.RespondError(c, h.Log, apperrors.Validation("content", "content is required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.Guard.CanManagePatientNotes(ctx, caller, req.PatientID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	note := models.PatientNote{
		PatientID: req.PatientID,
		DoctorID:  caller.UserID,
		Title:     strings.TrimSpace(req.Title),
		Content:   content,
	}
	if err := h.Store.PatientNotes.Create(ctx, &note); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Patient note created successfully", note)
}

// UpdateNote changes the title or content of one of the caller's notes.
func (h *PatientNoteHandler) UpdateNote(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}
	if !caller.IsDoctor() {
		utils.RespondError(c, h.Log, apperrors.Authorization("only doctors can manage patient notes"))
		return
	}

	var req UpdatePatientNoteRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	ctx := c.Request.Context()
	note, err := h.Store.PatientNotes.FindOwned(ctx, c.Param("id"), caller.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	if req.Title != nil {
		note.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			utils.RespondError(c, h.Log, apperrors.Validation("content", "content cannot be empty"))
			return
		}
		note.Content = content
	}

	if err := h.Store.PatientNotes.Update(ctx, note); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patient note updated successfully", note)
}

// DeleteNote removes one of the caller's notes.
func (h *PatientNoteHandler) DeleteNote(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}
	if !caller.IsDoctor() {
		utils.RespondError(c, h.Log, apperrors.Authorization("only doctors can manage patient notes"))
		return
	}

	if err := h.Store.PatientNotes.Delete(c.Request.Context(), c.Param("id"), caller.UserID); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patient note deleted successfully", nil)
}
