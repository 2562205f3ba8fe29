package extractor

import (
	"context"
	"errors"
	"fmt"

	"triageapi/internal/model"
)

// Package extractor is the boundary to the external document extraction
// engine. The pipeline only depends on this contract: raw bytes plus a
// declared content type in, free text and parsed clinical fields out, or a
// typed failure with a human-readable reason. Retry policy belongs to the
// caller, not to implementations.

// ErrEmptyDocument is returned when the input carries no bytes.
var ErrEmptyDocument = errors.New("document is empty")

// ExtractionError is a typed failure from the extraction engine. The Reason
// is safe to store on the document record and show to polling clients.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

// Extractor derives structured clinical data from raw document bytes.
// Implementations must be safe for concurrent use; the pipeline invokes
// Extract from multiple workers.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*model.ExtractionResult, error)
}
