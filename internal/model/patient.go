package model

import "time"

// RiskLevel is the triage risk classification for a patient.
type RiskLevel string

const (
	RiskLow            RiskLevel = "LOW"
	RiskMedium         RiskLevel = "MEDIUM"
	RiskHigh           RiskLevel = "HIGH"
	RiskReviewRequired RiskLevel = "REVIEW_REQUIRED"
)

// HighPriority reports whether the level qualifies for automatic doctor assignment.
func (r RiskLevel) HighPriority() bool {
	return r == RiskHigh || r == RiskReviewRequired
}

// Patient is the triage subject documents are uploaded for.
// AssignedDoctorID transitions only from empty to set; the automatic
// pipeline never overwrites it.
type Patient struct {
	ID                    string    `json:"id"`
	Age                   int       `json:"age"`
	Gender                string    `json:"gender"`
	RiskLevel             RiskLevel `json:"risk_level"`
	RecommendedDepartment string    `json:"recommended_department"`
	AssignedDoctorID      string    `json:"assigned_doctor_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// Doctor is an attending available for assignment.
// (DepartmentName, Name) is unique.
type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DepartmentName string `json:"department_name"`
	IsAvailable    bool   `json:"is_available"`
}
