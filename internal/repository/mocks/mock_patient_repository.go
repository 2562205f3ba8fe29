package mocks

import (
	"context"

	"triageapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockPatientRepository) AssignDoctor(ctx context.Context, patientID, doctorID string) (bool, error) {
	args := m.Called(ctx, patientID, doctorID)
	if f, ok := args.Get(0).(func(context.Context, string, string) bool); ok {
		return f(ctx, patientID, doctorID), args.Error(1)
	}
	return args.Bool(0), args.Error(1)
}

type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) ListAvailableByDepartment(ctx context.Context, department string, limit int) ([]model.Doctor, error) {
	args := m.Called(ctx, department, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) ListByDepartment(ctx context.Context, department string) ([]model.Doctor, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Doctor), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
