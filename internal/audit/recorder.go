package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// Recorder appends entries to the audit ledger. Record never returns an
// error: an audit outage must not cascade into a failure of the clinical
// workflow it documents. Persistence failures are reported locally only.
type Recorder interface {
	Record(ctx context.Context, action model.AuditAction, role model.UserRole, patientID string, metadata map[string]any)
}

type dbRecorder struct {
	repo repository.AuditRepository
	out  io.Writer
}

// NewRecorder creates a Recorder backed by the audit repository.
// Failures are logged as one-line JSON to stdout.
func NewRecorder(repo repository.AuditRepository) Recorder {
	return NewRecorderWithWriter(repo, os.Stdout)
}

// NewRecorderWithWriter is like NewRecorder with an explicit log destination.
func NewRecorderWithWriter(repo repository.AuditRepository, out io.Writer) Recorder {
	return &dbRecorder{repo: repo, out: out}
}

func (r *dbRecorder) Record(ctx context.Context, action model.AuditAction, role model.UserRole, patientID string, metadata map[string]any) {
	entry := &model.AuditLogEntry{
		ID:        uuid.New().String(),
		Action:    action,
		UserRole:  role,
		PatientID: patientID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.Insert(ctx, entry); err != nil {
		r.logFailure(entry, err)
	}
}

// logFailure is the only visible trace of a lost audit entry. Best effort:
// if even this write fails there is nothing left to do.
func (r *dbRecorder) logFailure(entry *model.AuditLogEntry, err error) {
	line := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "error",
		"component": "audit",
		"event":     "audit_write_failed",
		"action":    string(entry.Action),
		"user_role": string(entry.UserRole),
		"error":     err.Error(),
	}
	if entry.PatientID != "" {
		line["patient_id"] = entry.PatientID
	}
	enc := json.NewEncoder(r.out)
	_ = enc.Encode(line)
}
