// Package reports handles medical report uploads: validation of the declared
// metadata, content sniffing and access to stored reports.
package reports

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/models"
)

// DefaultMaxBytes is the decoded size cap of an uploaded file.
const DefaultMaxBytes = 5 * 1024 * 1024

// AllowedContentTypes lists the accepted report formats.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Upload is the client's report submission. FileData is base64, optionally
// wrapped in a data URL.
type Upload struct {
	Title         string
	Description   string
	ReportType    string
	FileName      string
	FileType      string
	FileSize      int64
	FileData      string
	AppointmentID string
}

// File is the decoded and verified content of an Upload.
type File struct {
	Data        []byte
	ContentType string
	ReportType  models.ReportType
}

// NormalizeContentType lower-cases a MIME type, drops parameters and maps
// the image/jpg alias to image/jpeg.
func NormalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}

// Validate checks u against maxBytes and the allow list, decodes the content
// and verifies the bytes really are of the declared type.
func Validate(u Upload, maxBytes int64) (*File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	switch {
	case strings.TrimSpace(u.Title) == "":
		return nil, apperrors.Validation("title", "title is required")
	case strings.TrimSpace(u.FileName) == "":
		return nil, apperrors.Validation("fileName", "fileName is required")
	case strings.TrimSpace(u.FileType) == "":
		return nil, apperrors.Validation("fileType", "fileType is required")
	case strings.TrimSpace(u.FileData) == "":
		return nil, apperrors.Validation("fileData", "fileData is required")
	}

	reportType := models.ReportTypeOther
	if u.ReportType != "" {
		reportType = models.ReportType(strings.ToLower(u.ReportType))
		if !reportType.IsValid() {
			return nil, apperrors.Validation("reportType", fmt.Sprintf("invalid report type %q", u.ReportType))
		}
	}

	declared := NormalizeContentType(u.FileType)
	if !AllowedContentTypes[declared] {
		return nil, apperrors.Validation("fileType", "invalid file type. Only JPEG, PNG, and PDF are allowed")
	}

	limitMsg := fmt.Sprintf("file size exceeds %s limit", humanSize(maxBytes))
	if u.FileSize > maxBytes {
		return nil, apperrors.Validation("fileSize", limitMsg)
	}

	payload := stripDataURL(u.FileData)
	// Reject before decoding anything obviously too large.
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, apperrors.Validation("fileData", limitMsg)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperrors.Validation("fileData", "fileData must be base64 encoded")
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.Validation("fileData", limitMsg)
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("fileData", "file is empty")
	}

	detected := NormalizeContentType(mimetype.Detect(data).String())
	if detected != declared {
		return nil, apperrors.Validation("fileData", fmt.Sprintf("file content is %s, not %s", detected, declared))
	}

	return &File{Data: data, ContentType: declared, ReportType: reportType}, nil
}

// stripDataURL removes a "data:<type>;base64," prefix if present.
func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

// EncodeDataURL renders stored content the way clients upload it.
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
