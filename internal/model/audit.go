package model

import "time"

// AuditAction identifies the kind of safety-relevant event being recorded.
type AuditAction string

const (
	ActionTriageResult      AuditAction = "TRIAGE_RESULT"
	ActionSafetyOverride    AuditAction = "SAFETY_OVERRIDE"
	ActionManualReroute     AuditAction = "MANUAL_REROUTE"
	ActionAIDisagreement    AuditAction = "AI_DISAGREEMENT"
	ActionPatientCreated    AuditAction = "PATIENT_CREATED"
	ActionDocumentUploaded  AuditAction = "DOCUMENT_UPLOADED"
	ActionDocumentProcessed AuditAction = "DOCUMENT_PROCESSED"
	ActionDocumentFailed    AuditAction = "DOCUMENT_FAILED"
)

// UserRole is the identity class of the actor behind an audited event.
type UserRole string

const (
	RoleAdmin         UserRole = "ADMIN"
	RoleTriageNurse   UserRole = "TRIAGE_NURSE"
	RoleDoctor        UserRole = "DOCTOR"
	RoleCommandCenter UserRole = "COMMAND_CENTER"
)

// AuditLogEntry is an append-only compliance record. Entries are never
// mutated or deleted once written.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Action    AuditAction    `json:"action"`
	UserRole  UserRole       `json:"user_role"`
	PatientID string         `json:"patient_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
