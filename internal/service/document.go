package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"triageapi/internal/audit"
	"triageapi/internal/model"
	"triageapi/internal/pipeline"
	"triageapi/internal/repository"
	"triageapi/internal/storage"
)

// MaxFileSize is the intake size ceiling for uploaded documents.
const MaxFileSize = 10 << 20 // 10 MiB

// fileURLExpiry bounds how long the presigned document URL stays valid.
const fileURLExpiry = 7 * 24 * time.Hour

// Pagination bounds for document listings.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrPatientIDRequired = errors.New("patientId is required")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrFileEmpty         = errors.New("no file provided or file is empty")
	ErrFileTooLarge      = errors.New("file too large (max 10MB)")
	ErrInvalidFileType   = errors.New("invalid file type, allowed: PDF, JPEG, PNG")
	ErrReaderNil         = errors.New("reader is nil")

	// ErrIntakeUnavailable marks transient infrastructure failures during
	// intake. The caller should retry; no partial record remains.
	ErrIntakeUnavailable = errors.New("intake temporarily unavailable")
)

// allowedTypes maps accepted mime types to the stored file extension.
var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// AssignmentResolver binds a doctor to a qualifying patient at most once.
// A nil doctor with nil error means no assignment happened, which is normal.
type AssignmentResolver interface {
	Resolve(ctx context.Context, patient *model.Patient) (*model.Doctor, error)
}

// ExtractionQueue accepts background extraction jobs.
type ExtractionQueue interface {
	Enqueue(job pipeline.Job) error
}

// UploadResult is what intake reports back to the caller. AssignedDoctor is
// set only when this upload triggered an assignment.
type UploadResult struct {
	Document       *model.UploadedDocument `json:"document"`
	AssignedDoctor *model.Doctor           `json:"assigned_doctor,omitempty"`
	Message        string                  `json:"message"`
}

// DocumentListResult is the service-level DTO for a patient's documents.
type DocumentListResult struct {
	Items []model.UploadedDocument `json:"data"`
	Total int                      `json:"total"`
}

// DocumentService defines the use cases of the document pipeline's
// synchronous surface: intake and status reads. Extraction itself runs on
// the background pipeline.
type DocumentService interface {
	// Upload accepts a document for a patient: validates, resolves doctor
	// assignment for high-priority patients, persists bytes and metadata,
	// and dispatches background extraction. The caller never waits on
	// extraction.
	Upload(ctx context.Context, patientID string, r io.Reader, contentType string, size int64, role model.UserRole) (*UploadResult, error)

	// Status returns the document's current pipeline state, including the
	// structured payload on success or the failure reason on failure.
	Status(ctx context.Context, id string) (*model.UploadedDocument, error)

	// ListByPatient returns a patient's documents, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) (*DocumentListResult, error)
}

type documentService struct {
	store    storage.Storage
	docs     repository.DocumentRepository
	patients repository.PatientRepository
	resolver AssignmentResolver
	queue    ExtractionQueue
	auditor  audit.Recorder
	out      io.Writer
}

// NewDocumentService constructs a DocumentService over its collaborators.
func NewDocumentService(store storage.Storage, docs repository.DocumentRepository, patients repository.PatientRepository, resolver AssignmentResolver, queue ExtractionQueue, auditor audit.Recorder) DocumentService {
	return &documentService{
		store:    store,
		docs:     docs,
		patients: patients,
		resolver: resolver,
		queue:    queue,
		auditor:  auditor,
		out:      os.Stdout,
	}
}

func (s *documentService) Upload(ctx context.Context, patientID string, r io.Reader, contentType string, size int64, role model.UserRole) (*UploadResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if patientID == "" {
		return nil, ErrPatientIDRequired
	}
	if size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrInvalidFileType
	}

	// The bytes travel with the background job, so read them up front.
	// Reading one byte past the ceiling catches liars about size.
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrFileEmpty
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrIntakeUnavailable, err)
	}

	// Assignment is best-effort and never blocks document acceptance.
	var assigned *model.Doctor
	if patient.RiskLevel.HighPriority() && patient.AssignedDoctorID == "" {
		assigned, err = s.resolver.Resolve(ctx, patient)
		if err != nil {
			s.logEvent("assignment_skipped", patient.ID, err.Error())
			assigned = nil
		}
	}

	key := "triage/" + uuid.New().String() + ext

	// Storage handoff happens before the intake record is created, so a
	// document row never exists without a valid storage address.
	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"patient-id": patient.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload to storage: %v", ErrIntakeUnavailable, err)
	}

	fileURL, err := s.store.PresignGet(ctx, objInfo.Key, fileURLExpiry)
	if err != nil {
		s.rollbackObject(ctx, key)
		return nil, fmt.Errorf("%w: presign file url: %v", ErrIntakeUnavailable, err)
	}

	doc := &model.UploadedDocument{
		ID:               uuid.New().String(),
		PatientID:        patient.ID,
		FileURL:          fileURL,
		StoragePath:      objInfo.Key,
		ContentType:      contentType,
		Size:             int64(len(data)),
		ExtractedText:    "",
		ProcessingStatus: model.StatusUploaded,
		CreatedAt:        time.Now().UTC(),
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		// Compensate: the object must not outlive a failed intake.
		s.rollbackObject(ctx, key)
		return nil, fmt.Errorf("%w: save document: %v", ErrIntakeUnavailable, err)
	}

	// Fire-and-forget: the caller gets the UPLOADED record immediately and
	// polls for the terminal state.
	if err := s.queue.Enqueue(pipeline.Job{
		DocumentID:  stored.ID,
		PatientID:   patient.ID,
		Data:        data,
		ContentType: contentType,
		Role:        role,
	}); err != nil {
		s.logEvent("extraction_enqueue_failed", stored.ID, err.Error())
	}

	s.auditor.Record(ctx, model.ActionDocumentUploaded, role, patient.ID, map[string]any{
		"documentId": stored.ID,
		"fileUrl":    stored.FileURL,
	})

	message := "File uploaded. Extraction running in background."
	if assigned != nil {
		message = fmt.Sprintf("File uploaded. Extraction running in background. Doctor auto-assigned: %s (%s).", assigned.Name, assigned.DepartmentName)
	}

	return &UploadResult{
		Document:       stored,
		AssignedDoctor: assigned,
		Message:        message,
	}, nil
}

// Status returns the document by ID. All fields come from one read, so a
// terminal status always arrives together with its payload or error message.
func (s *documentService) Status(ctx context.Context, id string) (*model.UploadedDocument, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListByPatient returns paginated documents without exposing repository types.
func (s *documentService) ListByPatient(ctx context.Context, patientID string, limit, offset int) (*DocumentListResult, error) {
	if patientID == "" {
		return nil, ErrPatientIDRequired
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.docs.ListByPatient(ctx, patientID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) rollbackObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logEvent("storage_rollback_failed", key, err.Error())
	}
}

func (s *documentService) logEvent(event, subject, errMsg string) {
	_ = json.NewEncoder(s.out).Encode(map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "warn",
		"component": "document_service",
		"event":     event,
		"subject":   subject,
		"error":     errMsg,
	})
}
