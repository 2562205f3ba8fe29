package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
// Insert-only: the table carries no update or delete paths.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

// Insert appends one audit row. patient_id is nullable; metadata is stored as jsonb.
func (r *AuditPostgres) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	var patientID any
	if entry.PatientID != "" {
		patientID = entry.PatientID
	}

	const q = `
		INSERT INTO audit_logs (id, action, user_role, patient_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, q,
		entry.ID,
		string(entry.Action),
		string(entry.UserRole),
		patientID,
		metadata,
		entry.CreatedAt,
	)
	return err
}
