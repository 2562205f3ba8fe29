package repository

import (
	"context"

	"triageapi/internal/model"
)

// DocumentRepository defines data access for uploaded documents.
//
// Status transitions are expressed as conditional updates so that the
// UPLOADED → PROCESSING → terminal ordering is enforced at the storage
// layer: a terminal row is never rewritten, regardless of caller timing.
type DocumentRepository interface {
	// Create inserts a new document record in its initial state and
	// returns the stored row (may include values set by the DB).
	Create(ctx context.Context, doc *model.UploadedDocument) (*model.UploadedDocument, error)

	// FindByID returns a document by its ID, including extraction results.
	FindByID(ctx context.Context, id string) (*model.UploadedDocument, error)

	// ListByPatient returns a paginated list of a patient's documents,
	// newest first, with the total row count.
	ListByPatient(ctx context.Context, patientID string, pq PageQuery) (*PageResult[model.UploadedDocument], error)

	// MarkProcessing flips the document from UPLOADED to PROCESSING.
	// Returns false without error when the row is not in UPLOADED.
	MarkProcessing(ctx context.Context, id string) (bool, error)

	// MarkExtracted writes the extraction result and moves the document to
	// AI_EXTRACTED. Returns false without error when the row is already terminal.
	MarkExtracted(ctx context.Context, id string, text string, structured *model.StructuredData) (bool, error)

	// MarkFailed moves the document to FAILED with the given reason.
	// Returns false without error when the row is already terminal.
	MarkFailed(ctx context.Context, id string, reason string) (bool, error)
}
