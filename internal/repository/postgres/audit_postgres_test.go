package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"triageapi/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestAuditPostgres_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAuditPostgres(db)
	ctx := context.Background()

	t.Run("entry with patient", func(t *testing.T) {
		entry := &model.AuditLogEntry{
			ID:        "audit-1",
			Action:    model.ActionDocumentUploaded,
			UserRole:  model.RoleTriageNurse,
			PatientID: "patient-1",
			Metadata:  map[string]any{"document_id": "doc-1"},
			CreatedAt: time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO audit_logs").
			WithArgs(entry.ID, "DOCUMENT_UPLOADED", "TRIAGE_NURSE", "patient-1", sqlmock.AnyArg(), entry.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Insert(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry without patient stores NULL", func(t *testing.T) {
		entry := &model.AuditLogEntry{
			ID:        "audit-2",
			Action:    model.ActionDocumentFailed,
			UserRole:  model.RoleTriageNurse,
			CreatedAt: time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO audit_logs").
			WithArgs(entry.ID, "DOCUMENT_FAILED", "TRIAGE_NURSE", nil, sqlmock.AnyArg(), entry.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Insert(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error propagates", func(t *testing.T) {
		entry := &model.AuditLogEntry{
			ID:        "audit-3",
			Action:    model.ActionDocumentProcessed,
			UserRole:  model.RoleDoctor,
			PatientID: "patient-1",
			CreatedAt: time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO audit_logs").
			WillReturnError(sql.ErrConnDone)

		assert.Error(t, repo.Insert(ctx, entry))
	})
}
