package lab

import (
	"context"

	"github.com/hms/hms/internal/domain/queue"
)

// QueueSource adapts pending lab orders for the laboratory queue merger.
type QueueSource struct {
	repo Repository
}

func NewQueueSource(repo Repository) *QueueSource {
	return &QueueSource{repo: repo}
}

func (s *QueueSource) ListPending(ctx context.Context) ([]queue.PendingTest, error) {
	tests, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]queue.PendingTest, 0, len(tests))
	for _, t := range tests {
		out = append(out, queue.PendingTest{
			ID:        t.ID,
			PatientID: t.PatientID,
			TestName:  t.TestName,
			Urgent:    t.Priority == PriorityUrgent,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}
