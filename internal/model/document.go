package model

import "time"

// ProcessingStatus is the lifecycle state of an uploaded document.
// UPLOADED and PROCESSING are in-flight; AI_EXTRACTED and FAILED are terminal.
type ProcessingStatus string

const (
	StatusUploaded    ProcessingStatus = "UPLOADED"
	StatusProcessing  ProcessingStatus = "PROCESSING"
	StatusAIExtracted ProcessingStatus = "AI_EXTRACTED"
	StatusFailed      ProcessingStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusAIExtracted || s == StatusFailed
}

// UploadedDocument represents a clinical document accepted at intake.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, pipeline) without coupling to persistence.
type UploadedDocument struct {
	ID               string           `json:"id"`
	PatientID        string           `json:"patient_id"`
	FileURL          string           `json:"file_url"`
	StoragePath      string           `json:"storage_path"`
	ContentType      string           `json:"content_type"`
	Size             int64            `json:"size"`
	ExtractedText    string           `json:"extracted_text"`
	StructuredData   *StructuredData  `json:"structured_data"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ProcessingError  string           `json:"processing_error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ClinicalFinding is a single extracted clinical item (a symptom, condition, or medication).
type ClinicalFinding struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Vitals holds the vital signs parsed out of a document, if any.
type Vitals struct {
	BP          string  `json:"bp,omitempty"`
	HeartRate   int     `json:"heartRate,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SpO2        int     `json:"spO2,omitempty"`
}

// StructuredData is the clinical payload derived from a document by extraction.
// Lists are open-ended and never required to be exhaustive.
type StructuredData struct {
	Symptoms    []ClinicalFinding `json:"symptoms,omitempty"`
	Conditions  []ClinicalFinding `json:"conditions,omitempty"`
	Medications []ClinicalFinding `json:"medications,omitempty"`
	Vitals      *Vitals           `json:"vitals,omitempty"`
}

// ExtractionResult is what the extraction boundary returns on success.
type ExtractionResult struct {
	Text       string          `json:"text"`
	Structured *StructuredData `json:"structured"`
}
