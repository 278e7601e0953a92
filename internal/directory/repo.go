package directory

import (
	"context"

	"github.com/google/uuid"
)

// PatientDirectory is what the queue and lab services know about patients.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	// SetCoarseStatus updates the patient-facing summary status.
	SetCoarseStatus(ctx context.Context, id uuid.UUID, status CoarseStatus) error
	// MarkRevisit flags a returning patient and records which department
	// they last visited.
	MarkRevisit(ctx context.Context, id uuid.UUID, lastDepartmentID uuid.UUID) error
}

// DepartmentDirectory resolves department ids to their display data.
type DepartmentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*Department, error)
	GetByCode(ctx context.Context, code string) (*Department, error)
}

// StaffDirectory resolves staff ids, primarily for assignment checks.
type StaffDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*Staff, error)
}
