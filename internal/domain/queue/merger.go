package queue

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/directory"
)

// PendingTest is the slice of a lab order the merger needs to synthesize a
// virtual queue row.
type PendingTest struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	TestName  string
	Urgent    bool
	CreatedAt time.Time
}

// PendingTestSource lists lab orders that have not yet been collected.
type PendingTestSource interface {
	ListPending(ctx context.Context) ([]PendingTest, error)
}

// EntryKind tags a merged row as persisted or synthesized.
type EntryKind string

const (
	KindPhysical EntryKind = "physical"
	KindVirtual  EntryKind = "virtual"
)

// MergedEntry is one row of the laboratory work list. Physical rows wrap a
// persisted Entry; virtual rows are synthesized from pending lab orders and
// are never written back.
type MergedEntry struct {
	Kind             EntryKind  `json:"kind"`
	QueueNumber      int        `json:"queue_number"`
	PatientID        uuid.UUID  `json:"patient_id"`
	Priority         int        `json:"priority"`
	Status           Status     `json:"status"`
	EstimatedWaitMin int        `json:"estimated_wait_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	Entry            *Entry     `json:"entry,omitempty"`
	TestID           *uuid.UUID `json:"test_id,omitempty"`
	TestName         string     `json:"test_name,omitempty"`
}

// Merger composes the laboratory's physical queue with pending lab orders
// into one ordered work list.
type Merger struct {
	repo    Repository
	pending PendingTestSource
	depts   directory.DepartmentDirectory
}

func NewMerger(repo Repository, pending PendingTestSource, depts directory.DepartmentDirectory) *Merger {
	return &Merger{repo: repo, pending: pending, depts: depts}
}

// GetMergedQueue returns the department's active entries plus, for the
// laboratory only, a virtual row for each pending test whose patient is not
// already physically queued. Other departments get their physical queue
// unchanged. Virtual numbering continues after the highest real number;
// ordering is priority ascending, then creation time ascending, regardless
// of kind.
func (m *Merger) GetMergedQueue(ctx context.Context, departmentID uuid.UUID) ([]MergedEntry, error) {
	dept, err := m.depts.Get(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	entries, err := m.repo.ListActiveByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	var pending []PendingTest
	if dept.Code == directory.DeptCodeLaboratory {
		pending, err = m.pending.ListPending(ctx)
		if err != nil {
			return nil, err
		}
	}

	queued := make(map[uuid.UUID]bool, len(entries))
	maxNumber := 0
	merged := make([]MergedEntry, 0, len(entries)+len(pending))
	for _, e := range entries {
		queued[e.PatientID] = true
		if e.QueueNumber > maxNumber {
			maxNumber = e.QueueNumber
		}
		merged = append(merged, MergedEntry{
			Kind:             KindPhysical,
			QueueNumber:      e.QueueNumber,
			PatientID:        e.PatientID,
			Priority:         e.Priority,
			Status:           e.Status,
			EstimatedWaitMin: e.EstimatedWaitMin,
			CreatedAt:        e.CreatedAt,
			Entry:            e,
		})
	}

	// Oldest orders get the earliest virtual numbers.
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	for i := range pending {
		t := pending[i]
		if queued[t.PatientID] {
			continue
		}
		maxNumber++
		priority := 3
		if t.Urgent {
			priority = 1
		}
		testID := t.ID
		merged = append(merged, MergedEntry{
			Kind:             KindVirtual,
			QueueNumber:      maxNumber,
			PatientID:        t.PatientID,
			Priority:         priority,
			Status:           StatusWaiting,
			EstimatedWaitMin: defaultWaitMinutes,
			CreatedAt:        t.CreatedAt,
			TestID:           &testID,
			TestName:         t.TestName,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority < merged[j].Priority
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged, nil
}
