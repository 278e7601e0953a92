// Package queue implements department admission queues: the entry state
// machine, wait-time estimation, transfers between departments and the
// merged laboratory work list.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the queue entry state. Transitions are governed by the
// transition table below; terminal states are final.
type Status string

const (
	StatusWaiting     Status = "WAITING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusTransferred Status = "TRANSFERRED"
	StatusCancelled   Status = "CANCELLED"
)

// Source records how the patient entered the queue.
type Source string

const (
	SourceReception  Source = "RECEPTION"
	SourceTriage     Source = "TRIAGE"
	SourceTransfer   Source = "TRANSFER"
	SourceLabRequest Source = "LAB_REQUEST"
)

var validSources = map[Source]bool{
	SourceReception:  true,
	SourceTriage:     true,
	SourceTransfer:   true,
	SourceLabRequest: true,
}

// ParseSource validates a raw source string.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !validSources[src] {
		return "", fmt.Errorf("unknown queue source: %q", s)
	}
	return src, nil
}

// transitions is the exhaustive state machine. Cancellation is allowed from
// any non-terminal state.
var transitions = map[Status]map[Status]bool{
	StatusWaiting: {
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted:   true,
		StatusTransferred: true,
		StatusCancelled:   true,
	},
	StatusCompleted:   {},
	StatusTransferred: {},
	StatusCancelled:   {},
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	if _, ok := transitions[Status(s)]; !ok {
		return "", fmt.Errorf("unknown queue status: %q", s)
	}
	return Status(s), nil
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Entry maps to the queue_entry table. Rows are never deleted; terminal
// states are final.
type Entry struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	DepartmentID     uuid.UUID  `db:"department_id" json:"department_id"`
	QueueNumber      int        `db:"queue_number" json:"queue_number"`
	Priority         int        `db:"priority" json:"priority"`
	Status           Status     `db:"status" json:"status"`
	Source           Source     `db:"source" json:"source"`
	EstimatedWaitMin int        `db:"estimated_wait_minutes" json:"estimated_wait_minutes"`
	ActualWaitMin    *int       `db:"actual_wait_minutes" json:"actual_wait_minutes,omitempty"`
	StartTime        *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime          *time.Time `db:"end_time" json:"end_time,omitempty"`
	AssignedStaffID  *uuid.UUID `db:"assigned_staff_id" json:"assigned_staff_id,omitempty"`
	Notes            string     `db:"notes" json:"notes"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AppendNote adds a line to the entry's append-only notes field.
func (e *Entry) AppendNote(note string) {
	if note == "" {
		return
	}
	if e.Notes == "" {
		e.Notes = note
		return
	}
	e.Notes = e.Notes + "\n" + note
}

// Stats summarizes one department's queue for the current day.
type Stats struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	Waiting        int       `json:"waiting"`
	InProgress     int       `json:"in_progress"`
	CompletedToday int       `json:"completed_today"`
	AvgWaitMinutes int       `json:"avg_wait_minutes"`
}
