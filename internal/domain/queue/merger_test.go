package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/directory"
)

type stubPending struct {
	tests []PendingTest
}

func (s *stubPending) ListPending(context.Context) ([]PendingTest, error) {
	return s.tests, nil
}

func mergerDepts(labID, emergID uuid.UUID) *mockDepts {
	return &mockDepts{depts: map[uuid.UUID]*directory.Department{
		labID:   {ID: labID, Name: "Laboratory", Code: directory.DeptCodeLaboratory},
		emergID: {ID: emergID, Name: "Emergency", Code: directory.DeptCodeEmergency},
	}}
}

func TestGetMergedQueue(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	labID := uuid.New()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	queuedPatient := uuid.New()
	walkIn := uuid.New()
	urgentPatient := uuid.New()
	orderedOnly := uuid.New()

	repo.Create(ctx, &Entry{
		PatientID: queuedPatient, DepartmentID: labID,
		QueueNumber: 1, Priority: 3, Status: StatusInProgress,
		CreatedAt: base,
	})
	repo.Create(ctx, &Entry{
		PatientID: walkIn, DepartmentID: labID,
		QueueNumber: 2, Priority: 3, Status: StatusWaiting,
		CreatedAt: base.Add(10 * time.Minute),
	})

	pending := &stubPending{tests: []PendingTest{
		// Patient already physically queued: must not double-count.
		{ID: uuid.New(), PatientID: queuedPatient, TestName: "CBC", CreatedAt: base.Add(5 * time.Minute)},
		{ID: uuid.New(), PatientID: orderedOnly, TestName: "LIPID", CreatedAt: base.Add(20 * time.Minute)},
		{ID: uuid.New(), PatientID: urgentPatient, TestName: "TROPONIN", Urgent: true, CreatedAt: base.Add(30 * time.Minute)},
	}}

	merged, err := NewMerger(repo, pending, mergerDepts(labID, uuid.New())).GetMergedQueue(ctx, labID)
	if err != nil {
		t.Fatalf("GetMergedQueue: %v", err)
	}
	if len(merged) != 4 {
		t.Fatalf("merged length = %d, want 4", len(merged))
	}

	// Urgent virtual entry sorts first; the rest follow by creation time.
	first := merged[0]
	if first.Kind != KindVirtual || first.Priority != 1 || first.TestName != "TROPONIN" {
		t.Errorf("first entry = %+v, want urgent virtual TROPONIN", first)
	}
	if first.Status != StatusWaiting {
		t.Errorf("virtual status = %s, want WAITING", first.Status)
	}
	if first.EstimatedWaitMin != 30 {
		t.Errorf("virtual estimate = %d, want 30", first.EstimatedWaitMin)
	}

	wantPatients := []uuid.UUID{urgentPatient, queuedPatient, walkIn, orderedOnly}
	for i, want := range wantPatients {
		if merged[i].PatientID != want {
			t.Errorf("position %d: patient = %s, want %s", i, merged[i].PatientID, want)
		}
	}

	// Virtual numbering continues after the highest physical number.
	// Numbers were handed out in creation order: LIPID before TROPONIN.
	for _, m := range merged {
		switch m.TestName {
		case "LIPID":
			if m.QueueNumber != 3 {
				t.Errorf("LIPID queue number = %d, want 3", m.QueueNumber)
			}
		case "TROPONIN":
			if m.QueueNumber != 4 {
				t.Errorf("TROPONIN queue number = %d, want 4", m.QueueNumber)
			}
		}
	}

	for _, m := range merged {
		if m.Kind == KindPhysical && m.Entry == nil {
			t.Error("physical entry missing its persisted row")
		}
		if m.Kind == KindVirtual && m.TestID == nil {
			t.Error("virtual entry missing its test reference")
		}
	}
}

func TestGetMergedQueue_EmptyDepartment(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	labID := uuid.New()
	pending := &stubPending{tests: []PendingTest{
		{ID: uuid.New(), PatientID: uuid.New(), TestName: "CBC", CreatedAt: time.Now()},
	}}

	merged, err := NewMerger(repo, pending, mergerDepts(labID, uuid.New())).GetMergedQueue(ctx, labID)
	if err != nil {
		t.Fatalf("GetMergedQueue: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("merged length = %d, want 1", len(merged))
	}
	if merged[0].QueueNumber != 1 {
		t.Errorf("queue number = %d, want 1 (numbering starts fresh)", merged[0].QueueNumber)
	}
}

func TestGetMergedQueue_NonLabDepartmentExcludesLabOrders(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	labID := uuid.New()
	emergID := uuid.New()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	triaged := uuid.New()
	repo.Create(ctx, &Entry{
		PatientID: triaged, DepartmentID: emergID,
		QueueNumber: 1, Priority: 1, Status: StatusWaiting,
		CreatedAt: base,
	})

	// Pending lab work belongs to the laboratory's list, not emergency's.
	pending := &stubPending{tests: []PendingTest{
		{ID: uuid.New(), PatientID: uuid.New(), TestName: "CBC", CreatedAt: base.Add(5 * time.Minute)},
	}}

	merged, err := NewMerger(repo, pending, mergerDepts(labID, emergID)).GetMergedQueue(ctx, emergID)
	if err != nil {
		t.Fatalf("GetMergedQueue: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("merged length = %d, want 1", len(merged))
	}
	if merged[0].Kind != KindPhysical || merged[0].PatientID != triaged {
		t.Errorf("entry = %+v, want the physical emergency row", merged[0])
	}
}
