package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"triageapi/internal/http/middleware"
	"triageapi/internal/model"
	"triageapi/internal/repository"
	"triageapi/internal/service"
)

// HealthCheck reports readiness: it checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint with no dependency checks.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// uploadResponse is the intake response body. AssignedDoctor appears only
// when this upload triggered an assignment.
type uploadResponse struct {
	ID             string                 `json:"id"`
	DocumentID     string                 `json:"document_id"`
	FileURL        string                 `json:"file_url"`
	Status         model.ProcessingStatus `json:"status"`
	Message        string                 `json:"message"`
	AssignedDoctor *model.Doctor          `json:"assigned_doctor,omitempty"`
}

// UploadDocument accepts a clinical document for a patient
// (multipart/form-data: file + patientId). The response returns immediately
// with the document in its initial state; extraction completes in the
// background and is observed via the status endpoint.
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		patientID := c.FormValue("patientId")

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		role := middleware.RoleFromCtx(c)

		res, err := docSvc.Upload(c.UserContext(), patientID, f, ct, fh.Size, role)
		if err != nil {
			return writeUploadError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			ID:             res.Document.ID,
			DocumentID:     res.Document.ID,
			FileURL:        res.Document.FileURL,
			Status:         res.Document.ProcessingStatus,
			Message:        res.Message,
			AssignedDoctor: res.AssignedDoctor,
		})
	}
}

func writeUploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPatientIDRequired):
		return writeError(c, fiber.StatusBadRequest, "PATIENT_ID_REQUIRED", service.ErrPatientIDRequired.Error())
	case errors.Is(err, service.ErrFileEmpty), errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "FILE_EMPTY", service.ErrFileEmpty.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return writeError(c, fiber.StatusBadRequest, "FILE_TOO_LARGE", service.ErrFileTooLarge.Error())
	case errors.Is(err, service.ErrInvalidFileType):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE", service.ErrInvalidFileType.Error())
	case errors.Is(err, service.ErrPatientNotFound):
		return writeError(c, fiber.StatusNotFound, "PATIENT_NOT_FOUND", service.ErrPatientNotFound.Error())
	case errors.Is(err, service.ErrIntakeUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "intake temporarily unavailable, please retry")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// statusResponse is the polling read of a document's pipeline state.
// structured_data is non-null only in AI_EXTRACTED; processing_error only in FAILED.
type statusResponse struct {
	ID               string                 `json:"id"`
	ProcessingStatus model.ProcessingStatus `json:"processing_status"`
	ExtractedText    string                 `json:"extracted_text,omitempty"`
	StructuredData   *model.StructuredData  `json:"structured_data,omitempty"`
	ProcessingError  string                 `json:"processing_error,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// DocumentStatus serves the polling read path. Safe to call repeatedly and
// concurrently with pipeline writes.
func DocumentStatus(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Status(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrDocumentNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(statusResponse{
			ID:               doc.ID,
			ProcessingStatus: doc.ProcessingStatus,
			ExtractedText:    doc.ExtractedText,
			StructuredData:   doc.StructuredData,
			ProcessingError:  doc.ProcessingError,
			CreatedAt:        doc.CreatedAt,
		})
	}
}

// ListPatientDocuments returns a patient's documents with limit & offset.
func ListPatientDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.ListByPatient(c.UserContext(), id, limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// ListDoctors returns doctors, optionally filtered by department.
func ListDoctors(doctors repository.DoctorRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := doctors.ListByDepartment(c.UserContext(), c.Query("department"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	}
}
