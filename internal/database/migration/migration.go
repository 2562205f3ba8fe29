package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_patients",
		SQL: `CREATE TABLE IF NOT EXISTS patients (
  id                     UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  age                    INT         NOT NULL DEFAULT 0,
  gender                 TEXT        NOT NULL DEFAULT '',
  risk_level             TEXT        NOT NULL DEFAULT 'LOW',
  recommended_department TEXT        NOT NULL DEFAULT 'Others',
  assigned_doctor_id     UUID        NULL,
  created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_doctors",
		SQL: `CREATE TABLE IF NOT EXISTS doctors (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name            TEXT        NOT NULL,
  department_name TEXT        NOT NULL,
  is_available    BOOLEAN     NOT NULL DEFAULT TRUE,
  UNIQUE (department_name, name)
);`,
	},
	{
		Name: "create_table_uploaded_documents",
		SQL: `CREATE TABLE IF NOT EXISTS uploaded_documents (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  patient_id        UUID        NOT NULL REFERENCES patients(id),
  file_url          TEXT        NOT NULL,
  storage_path      TEXT        NOT NULL UNIQUE,
  content_type      TEXT        NOT NULL,
  size              BIGINT      NOT NULL CHECK (size >= 0),
  extracted_text    TEXT        NOT NULL DEFAULT '',
  structured_data   JSONB       NULL,
  processing_status TEXT        NOT NULL DEFAULT 'UPLOADED',
  processing_error  TEXT        NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  action     TEXT        NOT NULL,
  user_role  TEXT        NOT NULL,
  patient_id UUID        NULL,
  metadata   JSONB       NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_doctors_department_available",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_doctors_department_available ON doctors (department_name, is_available);`,
	},
	{
		Name: "create_index_uploaded_documents_patient",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploaded_documents_patient ON uploaded_documents (patient_id, created_at);`,
	},
	{
		Name: "create_index_uploaded_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploaded_documents_status ON uploaded_documents (processing_status);`,
	},
	{
		Name: "create_index_audit_logs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);`,
	},
}

// EnsureMigrated checks if the 'uploaded_documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.uploaded_documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
