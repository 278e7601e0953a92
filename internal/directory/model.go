// Package directory provides lookups into the hospital's reference entities:
// patients, departments and staff. The queue and lab cores consume it through
// narrow interfaces and never reach into its tables directly.
package directory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CoarseStatus is the patient-facing summary of where a patient currently is
// in their visit. It is a closed enumeration; unknown values are rejected at
// the boundary.
type CoarseStatus string

const (
	StatusWaiting              CoarseStatus = "waiting"
	StatusInConsultation       CoarseStatus = "in_consultation"
	StatusInLaboratory         CoarseStatus = "in_laboratory"
	StatusInPharmacy           CoarseStatus = "in_pharmacy"
	StatusConsultationComplete CoarseStatus = "consultation_complete"
	StatusTransferred          CoarseStatus = "transferred"
)

var validCoarseStatuses = map[CoarseStatus]bool{
	StatusWaiting:              true,
	StatusInConsultation:       true,
	StatusInLaboratory:         true,
	StatusInPharmacy:           true,
	StatusConsultationComplete: true,
	StatusTransferred:          true,
}

// ParseCoarseStatus validates a raw status string.
func ParseCoarseStatus(s string) (CoarseStatus, error) {
	cs := CoarseStatus(s)
	if !validCoarseStatuses[cs] {
		return "", fmt.Errorf("unknown patient status: %q", s)
	}
	return cs, nil
}

// Patient maps to the patient table.
type Patient struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	FullName         string       `db:"full_name" json:"full_name"`
	Email            string       `db:"email" json:"email,omitempty"`
	CoarseStatus     CoarseStatus `db:"coarse_status" json:"coarse_status"`
	IsRevisit        bool         `db:"is_revisit" json:"is_revisit"`
	LastDepartmentID *uuid.UUID   `db:"last_department_id" json:"last_department_id,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// Department maps to the department table. Read-only from the core's
// perspective.
type Department struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Code string    `db:"code" json:"code"`
}

// Well-known department codes used for patient-facing status mapping.
const (
	DeptCodeLaboratory = "LAB"
	DeptCodePharmacy   = "PHARM"
	DeptCodeEmergency  = "EMERG"
)

// Staff maps to the staff table.
type Staff struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
}
