package repository

import (
	"context"

	"triageapi/internal/model"
)

// PatientRepository defines data access for patients.
type PatientRepository interface {
	// FindByID returns a patient by ID.
	FindByID(ctx context.Context, id string) (*model.Patient, error)

	// AssignDoctor sets the patient's assigned doctor if and only if no
	// doctor is currently assigned. It is a single conditional update; the
	// boolean result reports whether this caller won the write. A false
	// result with nil error means another writer got there first (or the
	// patient was already assigned) and the call was a no-op.
	AssignDoctor(ctx context.Context, patientID, doctorID string) (bool, error)
}

// DoctorRepository defines data access for doctors.
type DoctorRepository interface {
	// ListAvailableByDepartment returns available doctors in a department,
	// capped at limit rows.
	ListAvailableByDepartment(ctx context.Context, department string, limit int) ([]model.Doctor, error)

	// ListByDepartment returns all doctors in a department regardless of
	// availability; an empty department returns every doctor.
	ListByDepartment(ctx context.Context, department string) ([]model.Doctor, error)
}
