package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultWaitMinutes is used when a department has no completion history
	// and for entries created by transfer, which skip the estimator.
	defaultWaitMinutes = 30

	// estimatorSampleSize bounds how many recent completions feed the
	// baseline.
	estimatorSampleSize = 5
)

// Estimator derives admission wait estimates from a department's recent
// service history. The formula front-loads estimates for busy departments
// and low-priority admissions; it is a heuristic, not a prediction.
type Estimator struct {
	repo Repository
}

func NewEstimator(repo Repository) *Estimator {
	return &Estimator{repo: repo}
}

// Baseline returns the mean service duration in whole minutes over the
// department's most recent finished entries, or the default when there is no
// usable history.
func (e *Estimator) Baseline(ctx context.Context, departmentID uuid.UUID) (int, error) {
	durations, err := e.repo.RecentServiceDurations(ctx, departmentID, estimatorSampleSize)
	if err != nil {
		return 0, err
	}
	if len(durations) == 0 {
		return defaultWaitMinutes, nil
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return int(total.Minutes()) / len(durations), nil
}

// EstimateWait computes the estimate for a new admission:
// baseline × (waiting ahead + 1) × priority / 3, floored.
func (e *Estimator) EstimateWait(ctx context.Context, departmentID uuid.UUID, priority int) (int, error) {
	baseline, err := e.Baseline(ctx, departmentID)
	if err != nil {
		return 0, err
	}
	waiting, err := e.repo.CountWaitingToday(ctx, departmentID)
	if err != nil {
		return 0, err
	}
	return baseline * (waiting + 1) * priority / 3, nil
}
