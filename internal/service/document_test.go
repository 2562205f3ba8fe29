package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"triageapi/internal/audit"
	"triageapi/internal/model"
	"triageapi/internal/pipeline"
	"triageapi/internal/repository"
	repoMocks "triageapi/internal/repository/mocks"
	svcMocks "triageapi/internal/service/mocks"
	"triageapi/internal/storage"
	storeMocks "triageapi/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type uploadFixture struct {
	store     *storeMocks.MockStorage
	docs      *repoMocks.MockDocumentRepository
	patients  *repoMocks.MockPatientRepository
	resolver  *svcMocks.MockAssignmentResolver
	queue     *svcMocks.MockExtractionQueue
	auditRepo *repoMocks.MockAuditRepository
	svc       DocumentService
}

func newUploadFixture() *uploadFixture {
	f := &uploadFixture{
		store:     new(storeMocks.MockStorage),
		docs:      new(repoMocks.MockDocumentRepository),
		patients:  new(repoMocks.MockPatientRepository),
		resolver:  new(svcMocks.MockAssignmentResolver),
		queue:     new(svcMocks.MockExtractionQueue),
		auditRepo: new(repoMocks.MockAuditRepository),
	}
	auditor := audit.NewRecorderWithWriter(f.auditRepo, io.Discard)
	f.svc = NewDocumentService(f.store, f.docs, f.patients, f.resolver, f.queue, auditor)
	f.svc.(*documentService).out = io.Discard
	return f
}

func lowRiskPatient() *model.Patient {
	return &model.Patient{
		ID:                    "patient-1",
		RiskLevel:             model.RiskLow,
		RecommendedDepartment: "General Medicine",
	}
}

func highRiskPatient() *model.Patient {
	return &model.Patient{
		ID:                    "patient-1",
		RiskLevel:             model.RiskHigh,
		RecommendedDepartment: "Cardiology",
	}
}

func (f *uploadFixture) expectStorage() {
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "triage/")
	}), mock.Anything, mock.Anything).
		Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
		}, nil)
	f.store.On("PresignGet", mock.Anything, mock.Anything, fileURLExpiry).
		Return("https://storage.example/presigned", nil)
}

func (f *uploadFixture) expectCreate() {
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.UploadedDocument) bool {
		return doc.PatientID == "patient-1" &&
			doc.ProcessingStatus == model.StatusUploaded &&
			doc.ExtractedText == "" &&
			doc.StructuredData == nil &&
			doc.FileURL != ""
	})).Return(func(ctx context.Context, doc *model.UploadedDocument) *model.UploadedDocument {
		return doc
	}, nil)
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		patientID   string
		reader      io.Reader
		contentType string
		size        int64
		wantErr     error
	}{
		{
			name:        "nil reader",
			patientID:   "patient-1",
			reader:      nil,
			contentType: "application/pdf",
			wantErr:     ErrReaderNil,
		},
		{
			name:        "missing patient id",
			patientID:   "",
			reader:      strings.NewReader("%PDF"),
			contentType: "application/pdf",
			size:        4,
			wantErr:     ErrPatientIDRequired,
		},
		{
			name:        "empty file",
			patientID:   "patient-1",
			reader:      strings.NewReader(""),
			contentType: "application/pdf",
			size:        0,
			wantErr:     ErrFileEmpty,
		},
		{
			name:        "declared size over ceiling",
			patientID:   "patient-1",
			reader:      strings.NewReader("%PDF"),
			contentType: "application/pdf",
			size:        MaxFileSize + 1,
			wantErr:     ErrFileTooLarge,
		},
		{
			name:        "disallowed mime type",
			patientID:   "patient-1",
			reader:      strings.NewReader("plain text"),
			contentType: "text/plain",
			size:        10,
			wantErr:     ErrInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture()

			res, err := f.svc.Upload(ctx, tt.patientID, tt.reader, tt.contentType, tt.size, model.RoleTriageNurse)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
			// Rejected before any state was created.
			f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.queue.AssertNotCalled(t, "Enqueue", mock.Anything)
		})
	}
}

func TestDocumentService_Upload_UnknownPatient(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()
	f.patients.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

	res, err := f.svc.Upload(ctx, "ghost", strings.NewReader("%PDF"), "application/pdf", 4, model.RoleTriageNurse)

	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.Nil(t, res)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_LowRiskSkipsAssignment(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()
	f.patients.On("FindByID", ctx, "patient-1").Return(lowRiskPatient(), nil)
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.MatchedBy(func(job pipeline.Job) bool {
		return job.PatientID == "patient-1" && job.ContentType == "application/pdf" && len(job.Data) > 0
	})).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.MatchedBy(func(e *model.AuditLogEntry) bool {
		return e.Action == model.ActionDocumentUploaded && e.PatientID == "patient-1"
	})).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.AssignedDoctor)
	assert.Equal(t, model.StatusUploaded, res.Document.ProcessingStatus)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	f.queue.AssertExpectations(t)
	f.auditRepo.AssertExpectations(t)
}

func TestDocumentService_Upload_HighRiskAssigns(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()
	doctor := &model.Doctor{ID: "doc-1", Name: "A. Sharma", DepartmentName: "Cardiology"}

	f.patients.On("FindByID", ctx, "patient-1").Return(highRiskPatient(), nil)
	f.resolver.On("Resolve", ctx, mock.MatchedBy(func(p *model.Patient) bool {
		return p.ID == "patient-1"
	})).Return(doctor, nil)
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.Anything).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.Anything).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleDoctor)

	require.NoError(t, err)
	require.NotNil(t, res.AssignedDoctor)
	assert.Equal(t, "doc-1", res.AssignedDoctor.ID)
	assert.Contains(t, res.Message, "A. Sharma")
	assert.Contains(t, res.Message, "Cardiology")
}

func TestDocumentService_Upload_AlreadyAssignedSkipsResolver(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()
	patient := highRiskPatient()
	patient.AssignedDoctorID = "doc-9"

	f.patients.On("FindByID", ctx, "patient-1").Return(patient, nil)
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.Anything).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.Anything).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	require.NoError(t, err)
	assert.Nil(t, res.AssignedDoctor)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_NoCandidateStillAccepts(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()

	f.patients.On("FindByID", ctx, "patient-1").Return(highRiskPatient(), nil)
	f.resolver.On("Resolve", ctx, mock.Anything).Return(nil, nil)
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.Anything).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.Anything).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	require.NoError(t, err)
	assert.Nil(t, res.AssignedDoctor)
	assert.Equal(t, "File uploaded. Extraction running in background.", res.Message)
}

func TestDocumentService_Upload_ResolverFailureDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()

	f.patients.On("FindByID", ctx, "patient-1").Return(highRiskPatient(), nil)
	f.resolver.On("Resolve", ctx, mock.Anything).Return(nil, errors.New("assignment store down"))
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.Anything).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.Anything).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	// The upload still succeeds; assignment is simply skipped.
	require.NoError(t, err)
	assert.Nil(t, res.AssignedDoctor)
}

func TestDocumentService_Upload_StorageFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()

	f.patients.On("FindByID", ctx, "patient-1").Return(lowRiskPatient(), nil)
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("minio unreachable"))

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	assert.ErrorIs(t, err, ErrIntakeUnavailable)
	assert.Nil(t, res)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestDocumentService_Upload_CreateFailureRollsBackObject(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()

	f.patients.On("FindByID", ctx, "patient-1").Return(lowRiskPatient(), nil)
	f.expectStorage()
	f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	f.store.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "triage/")
	})).Return(nil)

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	assert.ErrorIs(t, err, ErrIntakeUnavailable)
	assert.Nil(t, res)
	f.store.AssertExpectations(t)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestDocumentService_Upload_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture()

	f.patients.On("FindByID", ctx, "patient-1").Return(lowRiskPatient(), nil)
	f.expectStorage()
	f.expectCreate()
	f.queue.On("Enqueue", mock.Anything).Return(nil)
	f.auditRepo.On("Insert", ctx, mock.Anything).Return(errors.New("audit db down"))

	res, err := f.svc.Upload(ctx, "patient-1", strings.NewReader("%PDF-1.4"), "application/pdf", 8, model.RoleTriageNurse)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, model.StatusUploaded, res.Document.ProcessingStatus)
}

func TestDocumentService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal success carries structured payload", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("FindByID", ctx, "doc-1").Return(&model.UploadedDocument{
			ID:               "doc-1",
			ProcessingStatus: model.StatusAIExtracted,
			ExtractedText:    "Patient reports chest pain.",
			StructuredData: &model.StructuredData{
				Symptoms: []model.ClinicalFinding{{Value: "chest pain"}},
			},
		}, nil)

		doc, err := f.svc.Status(ctx, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, model.StatusAIExtracted, doc.ProcessingStatus)
		require.NotNil(t, doc.StructuredData)
		assert.Empty(t, doc.ProcessingError)
	})

	t.Run("terminal failure carries error message", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("FindByID", ctx, "doc-2").Return(&model.UploadedDocument{
			ID:               "doc-2",
			ProcessingStatus: model.StatusFailed,
			ProcessingError:  "unreadable scan",
		}, nil)

		doc, err := f.svc.Status(ctx, "doc-2")

		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, doc.ProcessingStatus)
		assert.Equal(t, "unreadable scan", doc.ProcessingError)
		assert.Nil(t, doc.StructuredData)
		assert.Empty(t, doc.ExtractedText)
	})

	t.Run("in-flight document has neither payload nor error", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("FindByID", ctx, "doc-3").Return(&model.UploadedDocument{
			ID:               "doc-3",
			ProcessingStatus: model.StatusProcessing,
		}, nil)

		doc, err := f.svc.Status(ctx, "doc-3")

		require.NoError(t, err)
		assert.Nil(t, doc.StructuredData)
		assert.Empty(t, doc.ProcessingError)
	})

	t.Run("validation - empty id", func(t *testing.T) {
		f := newUploadFixture()
		doc, err := f.svc.Status(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
		assert.Nil(t, doc)
	})

	t.Run("not found - mapping sql.ErrNoRows", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		doc, err := f.svc.Status(ctx, "missing")

		assert.ErrorIs(t, err, ErrDocumentNotFound)
		assert.Nil(t, doc)
	})
}

func TestDocumentService_ListByPatient(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("ListByPatient", ctx, "patient-1", repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.UploadedDocument]{
				Items: []model.UploadedDocument{{ID: "1"}, {ID: "2"}},
				Total: 2,
			}, nil)

		res, err := f.svc.ListByPatient(ctx, "patient-1", 10, 0)

		require.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Equal(t, 2, res.Total)
	})

	t.Run("pagination boundary - zero limit uses default", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("ListByPatient", ctx, "patient-1", repository.PageQuery{Limit: defaultPageSize, Offset: 0}).
			Return(&repository.PageResult[model.UploadedDocument]{Items: []model.UploadedDocument{}, Total: 0}, nil)

		_, err := f.svc.ListByPatient(ctx, "patient-1", 0, -1)
		assert.NoError(t, err)
	})

	t.Run("pagination boundary - oversized limit is capped", func(t *testing.T) {
		f := newUploadFixture()
		f.docs.On("ListByPatient", ctx, "patient-1", repository.PageQuery{Limit: maxPageSize, Offset: 0}).
			Return(&repository.PageResult[model.UploadedDocument]{Items: []model.UploadedDocument{}, Total: 0}, nil)

		_, err := f.svc.ListByPatient(ctx, "patient-1", 5000, 0)
		assert.NoError(t, err)
		f.docs.AssertExpectations(t)
	})

	t.Run("missing patient id", func(t *testing.T) {
		f := newUploadFixture()
		_, err := f.svc.ListByPatient(ctx, "", 10, 0)
		assert.ErrorIs(t, err, ErrPatientIDRequired)
	})
}
