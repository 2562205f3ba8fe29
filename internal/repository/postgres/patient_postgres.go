package postgres

import (
	"context"
	"database/sql"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// PatientPostgres is a PostgreSQL implementation of repository.PatientRepository.
type PatientPostgres struct {
	db *sql.DB
}

// NewPatientPostgres creates a new PatientPostgres repository.
func NewPatientPostgres(db *sql.DB) *PatientPostgres {
	return &PatientPostgres{db: db}
}

var _ repository.PatientRepository = (*PatientPostgres)(nil)

// FindByID fetches a single patient by ID.
func (r *PatientPostgres) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	const q = `
		SELECT id, age, gender, risk_level, recommended_department, assigned_doctor_id, created_at
		FROM patients
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var (
		p        model.Patient
		risk     string
		assigned sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.Age,
		&p.Gender,
		&risk,
		&p.RecommendedDepartment,
		&assigned,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.RiskLevel = model.RiskLevel(risk)
	if assigned.Valid {
		p.AssignedDoctorID = assigned.String
	}
	return &p, nil
}

// AssignDoctor sets assigned_doctor_id in a single conditional update.
// The IS NULL guard is the compare-and-swap: concurrent callers race on it
// and exactly one observes rows affected = 1. Losers are a silent no-op.
func (r *PatientPostgres) AssignDoctor(ctx context.Context, patientID, doctorID string) (bool, error) {
	const q = `
		UPDATE patients
		SET assigned_doctor_id = $2
		WHERE id = $1 AND assigned_doctor_id IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, patientID, doctorID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
