package mocks

import (
	"context"

	"triageapi/internal/model"
	"triageapi/internal/pipeline"

	"github.com/stretchr/testify/mock"
)

type MockAssignmentResolver struct {
	mock.Mock
}

func (m *MockAssignmentResolver) Resolve(ctx context.Context, patient *model.Patient) (*model.Doctor, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

type MockExtractionQueue struct {
	mock.Mock
}

func (m *MockExtractionQueue) Enqueue(job pipeline.Job) error {
	args := m.Called(job)
	return args.Error(0)
}
