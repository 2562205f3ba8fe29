package mocks

import (
	"context"
	"io"

	"triageapi/internal/model"
	"triageapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, patientID string, r io.Reader, contentType string, size int64, role model.UserRole) (*service.UploadResult, error) {
	args := m.Called(ctx, patientID, r, contentType, size, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) Status(ctx context.Context, id string) (*model.UploadedDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedDocument), args.Error(1)
}

func (m *MockDocumentService) ListByPatient(ctx context.Context, patientID string, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, patientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}
