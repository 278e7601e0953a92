package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage interface for queue entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetActiveByPatient returns the patient's single non-terminal entry
	// across all departments, or a NotFound error if there is none.
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error)

	// NextQueueNumber returns the next per-day number for a department.
	// Callers must invoke it inside a transaction: the implementation
	// serializes concurrent admissions to the same department.
	NextQueueNumber(ctx context.Context, departmentID uuid.UUID) (int, error)

	// RecentServiceDurations returns up to limit durations of the most
	// recently finished entries (completed or transferred) in a department
	// that have both start and end timestamps, newest first.
	RecentServiceDurations(ctx context.Context, departmentID uuid.UUID, limit int) ([]time.Duration, error)

	// CountWaitingToday counts WAITING entries created since local midnight.
	CountWaitingToday(ctx context.Context, departmentID uuid.UUID) (int, error)

	// ListActiveByDepartment returns WAITING and IN_PROGRESS entries ordered
	// by priority, then creation time.
	ListActiveByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Entry, error)

	// ListByPatient returns a page of the patient's admission history,
	// newest first, plus the total row count.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)

	// Stats summarizes the department's queue for the current day.
	Stats(ctx context.Context, departmentID uuid.UUID) (*Stats, error)
}
