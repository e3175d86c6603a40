package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/reports"
	"telehealth-app-server/internal/utils"
)

// ReportHandler handles medical report uploads and access.
type ReportHandler struct {
	Service *reports.Service
	Log     *zap.Logger
	// MaxBodyBytes bounds the JSON upload body, base64 overhead included.
	MaxBodyBytes int64
}

func NewReportHandler(svc *reports.Service, maxFileBytes int64, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		Service:      svc,
		Log:          log,
		MaxBodyBytes: maxFileBytes*4/3 + 64*1024,
	}
}

// UploadReportRequest represents the JSON body of a report upload.
type UploadReportRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	ReportType    string `json:"reportType"`
	FileName      string `json:"fileName" binding:"required"`
	FileType      string `json:"fileType" binding:"required"`
	FileSize      int64  `json:"fileSize"`
	FileData      string `json:"fileData" binding:"required"`
	AppointmentID string `json:"appointmentId"`
}

// UploadReport stores a report for the calling patient.
func (h *ReportHandler) UploadReport(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	if h.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBodyBytes)
	}
	var req UploadReportRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	report, err := h.Service.Upload(c.Request.Context(), caller, reports.Upload{
		Title:         req.Title,
		Description:   req.Description,
		ReportType:    req.ReportType,
		FileName:      req.FileName,
		FileType:      req.FileType,
		FileSize:      req.FileSize,
		FileData:      req.FileData,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Report uploaded successfully", report)
}

// GetMyReports lists the caller's reports without file content.
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	list, err := h.Service.ListMine(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Reports fetched successfully", nonNil(list))
}

// GetPatientReports lists a patient's reports for a doctor who has seen them.
func (h *ReportHandler) GetPatientReports(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	list, err := h.Service.ListForPatient(c.Request.Context(), caller, c.Param("patientId"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Patient reports fetched successfully", nonNil(list))
}

// GetReportByID returns a report together with its content as a data URL.
func (h *ReportHandler) GetReportByID(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	report, err := h.Service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Report fetched successfully", report)
}

// DeleteReport removes one of the caller's reports.
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Report deleted successfully", nil)
}
