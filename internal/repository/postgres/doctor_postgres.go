package postgres

import (
	"context"
	"database/sql"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// DoctorPostgres is a PostgreSQL implementation of repository.DoctorRepository.
type DoctorPostgres struct {
	db *sql.DB
}

// NewDoctorPostgres creates a new DoctorPostgres repository.
func NewDoctorPostgres(db *sql.DB) *DoctorPostgres {
	return &DoctorPostgres{db: db}
}

var _ repository.DoctorRepository = (*DoctorPostgres)(nil)

// ListAvailableByDepartment returns available doctors in a department, capped at limit.
func (r *DoctorPostgres) ListAvailableByDepartment(ctx context.Context, department string, limit int) ([]model.Doctor, error) {
	const q = `
		SELECT id, name, department_name, is_available
		FROM doctors
		WHERE department_name = $1 AND is_available = TRUE
		ORDER BY name
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, department, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDoctors(rows)
}

// ListByDepartment returns doctors in a department regardless of availability.
// An empty department returns all doctors.
func (r *DoctorPostgres) ListByDepartment(ctx context.Context, department string) ([]model.Doctor, error) {
	const qAll = `
		SELECT id, name, department_name, is_available
		FROM doctors
		ORDER BY department_name, name
	`
	const qDept = `
		SELECT id, name, department_name, is_available
		FROM doctors
		WHERE department_name = $1
		ORDER BY name
	`
	var (
		rows *sql.Rows
		err  error
	)
	if department == "" {
		rows, err = r.db.QueryContext(ctx, qAll)
	} else {
		rows, err = r.db.QueryContext(ctx, qDept, department)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDoctors(rows)
}

func collectDoctors(rows *sql.Rows) ([]model.Doctor, error) {
	items := make([]model.Doctor, 0)
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.DepartmentName, &d.IsAvailable); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
