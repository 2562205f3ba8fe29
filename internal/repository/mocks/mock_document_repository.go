package mocks

import (
	"context"

	"triageapi/internal/model"
	"triageapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.UploadedDocument) (*model.UploadedDocument, error) {
	args := m.Called(ctx, doc)
	if f, ok := args.Get(0).(func(context.Context, *model.UploadedDocument) *model.UploadedDocument); ok {
		return f(ctx, doc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.UploadedDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedDocument), args.Error(1)
}

func (m *MockDocumentRepository) ListByPatient(ctx context.Context, patientID string, pq repository.PageQuery) (*repository.PageResult[model.UploadedDocument], error) {
	args := m.Called(ctx, patientID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.UploadedDocument]), args.Error(1)
}

func (m *MockDocumentRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) MarkExtracted(ctx context.Context, id string, text string, structured *model.StructuredData) (bool, error) {
	args := m.Called(ctx, id, text, structured)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) MarkFailed(ctx context.Context, id string, reason string) (bool, error) {
	args := m.Called(ctx, id, reason)
	return args.Bool(0), args.Error(1)
}
