// Package lab implements the batch lab test workflow: ordering related tests
// under one batch, collecting a shared sample for the batch, and distributing
// submitted results to the right members.
package lab

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lab test state. Transitions are strictly forward; a test
// never moves back to an earlier state.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusSampleCollected Status = "SAMPLE_COLLECTED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCompleted       Status = "COMPLETED"
)

var statusRank = map[Status]int{
	StatusPending:         0,
	StatusSampleCollected: 1,
	StatusInProgress:      2,
	StatusCompleted:       3,
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	if _, ok := statusRank[Status(s)]; !ok {
		return "", fmt.Errorf("unknown lab test status: %q", s)
	}
	return Status(s), nil
}

// CanAdvance reports whether from → to respects the forward-only ordering.
func CanAdvance(from, to Status) bool {
	return statusRank[to] > statusRank[from]
}

// Priority is the test urgency.
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityNormal Priority = "NORMAL"
)

// ParsePriority validates a raw priority string.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if p != PriorityUrgent && p != PriorityNormal {
		return "", fmt.Errorf("unknown lab test priority: %q", s)
	}
	return p, nil
}

// Test maps to the lab_test table. Tests created together share a BatchID;
// the first member of a batch is the parent and every other member points at
// it through ParentTestID.
type Test struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	QueueEntryID *uuid.UUID `db:"queue_entry_id" json:"queue_entry_id,omitempty"`

	BatchID      *uuid.UUID `db:"batch_id" json:"batch_id,omitempty"`
	IsParentTest bool       `db:"is_parent_test" json:"is_parent_test"`
	ParentTestID *uuid.UUID `db:"parent_test_id" json:"parent_test_id,omitempty"`
	BatchSize    int        `db:"batch_size" json:"batch_size"`
	BatchIndex   int        `db:"batch_index" json:"batch_index"`

	TestCode string   `db:"test_code" json:"test_code"`
	TestName string   `db:"test_name" json:"test_name"`
	Priority Priority `db:"priority" json:"priority"`
	Status   Status   `db:"status" json:"status"`

	// Catalog enrichment, best-effort at ordering time.
	Price             *int64 `db:"price" json:"price,omitempty"`
	SampleType        string `db:"sample_type" json:"sample_type,omitempty"`
	TurnaroundMinutes *int   `db:"turnaround_minutes" json:"turnaround_minutes,omitempty"`

	SharedSampleID     *string    `db:"shared_sample_id" json:"shared_sample_id,omitempty"`
	SampleCollectedAt  *time.Time `db:"sample_collected_at" json:"sample_collected_at,omitempty"`
	SampleCollectedBy  *uuid.UUID `db:"sample_collected_by" json:"sample_collected_by,omitempty"`
	CollectionMethod   string     `db:"collection_method" json:"collection_method,omitempty"`
	PatientPreparation string     `db:"patient_preparation" json:"patient_preparation,omitempty"`

	Results         map[string]interface{} `db:"results" json:"results,omitempty"`
	ReferenceRange  string                 `db:"reference_range" json:"reference_range,omitempty"`
	IsAbnormal      bool                   `db:"is_abnormal" json:"is_abnormal"`
	IsCritical      bool                   `db:"is_critical" json:"is_critical"`
	ResultDate      *time.Time             `db:"result_date" json:"result_date,omitempty"`
	ResultEnteredBy *uuid.UUID             `db:"result_entered_by" json:"result_entered_by,omitempty"`

	RequestedBy uuid.UUID `db:"requested_by" json:"requested_by"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
