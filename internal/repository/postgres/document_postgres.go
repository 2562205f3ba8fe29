package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Status transitions are guarded in SQL so a terminal row is never rewritten.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, patient_id, file_url, storage_path, content_type, size,
		extracted_text, structured_data, processing_status, processing_error, created_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.UploadedDocument) (*model.UploadedDocument, error) {
	const q = `
		INSERT INTO uploaded_documents
			(id, patient_id, file_url, storage_path, content_type, size, extracted_text, processing_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.PatientID,
		doc.FileURL,
		doc.StoragePath,
		doc.ContentType,
		doc.Size,
		doc.ExtractedText,
		string(doc.ProcessingStatus),
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID. All status fields come from
// one SELECT, so readers never see a mix of two transitions.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.UploadedDocument, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM uploaded_documents
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// ListByPatient returns a patient's documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) ListByPatient(ctx context.Context, patientID string, pq repository.PageQuery) (*repository.PageResult[model.UploadedDocument], error) {
	const qCount = `SELECT COUNT(*) FROM uploaded_documents WHERE patient_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, patientID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM uploaded_documents
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, patientID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.UploadedDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.UploadedDocument]{
		Items: items,
		Total: total,
	}, nil
}

// MarkProcessing flips UPLOADED to PROCESSING. The WHERE guard makes the
// transition idempotent: rows already past UPLOADED are left untouched.
func (r *DocumentPostgres) MarkProcessing(ctx context.Context, id string) (bool, error) {
	const q = `
		UPDATE uploaded_documents
		SET processing_status = 'PROCESSING'
		WHERE id = $1 AND processing_status = 'UPLOADED'
	`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkExtracted writes the extraction result and moves the row to AI_EXTRACTED.
// Terminal rows are excluded by the WHERE guard.
func (r *DocumentPostgres) MarkExtracted(ctx context.Context, id string, text string, structured *model.StructuredData) (bool, error) {
	payload, err := json.Marshal(structured)
	if err != nil {
		return false, fmt.Errorf("marshal structured data: %w", err)
	}
	const q = `
		UPDATE uploaded_documents
		SET processing_status = 'AI_EXTRACTED',
		    extracted_text = $2,
		    structured_data = $3,
		    processing_error = NULL
		WHERE id = $1 AND processing_status IN ('UPLOADED', 'PROCESSING')
	`
	res, err := r.db.ExecContext(ctx, q, id, text, payload)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkFailed moves the row to FAILED with the failure reason.
// Terminal rows are excluded by the WHERE guard.
func (r *DocumentPostgres) MarkFailed(ctx context.Context, id string, reason string) (bool, error) {
	const q = `
		UPDATE uploaded_documents
		SET processing_status = 'FAILED',
		    processing_error = $2
		WHERE id = $1 AND processing_status IN ('UPLOADED', 'PROCESSING')
	`
	res, err := r.db.ExecContext(ctx, q, id, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.UploadedDocument, error) {
	var (
		d          model.UploadedDocument
		status     string
		structured []byte
		procErr    sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.FileURL,
		&d.StoragePath,
		&d.ContentType,
		&d.Size,
		&d.ExtractedText,
		&structured,
		&status,
		&procErr,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.ProcessingStatus = model.ProcessingStatus(status)
	if procErr.Valid {
		d.ProcessingError = procErr.String
	}
	if len(structured) > 0 {
		var sd model.StructuredData
		if err := json.Unmarshal(structured, &sd); err != nil {
			return nil, fmt.Errorf("unmarshal structured data: %w", err)
		}
		d.StructuredData = &sd
	}
	return &d, nil
}
