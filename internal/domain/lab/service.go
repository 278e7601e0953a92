package lab

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/catalog"
	"github.com/hms/hms/internal/directory"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

// Catalog resolves test codes to their definitions. It is a soft dependency:
// lookup failures enrich nothing but never fail an order.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (*catalog.TestDefinition, error)
}

// Notifier delivers best-effort outbound notices.
type Notifier interface {
	ResultsReady(ctx context.Context, recipient, patientName string, completedCount int)
}

type Service struct {
	repo     Repository
	patients directory.PatientDirectory
	catalog  Catalog
	notifier Notifier
	pool     *pgxpool.Pool
}

func NewService(
	repo Repository,
	patients directory.PatientDirectory,
	cat Catalog,
	notifier Notifier,
	pool *pgxpool.Pool,
) *Service {
	return &Service{repo: repo, patients: patients, catalog: cat, notifier: notifier, pool: pool}
}

// TestRequest is one member of a batch order. Priority and notes override
// the batch defaults when set.
type TestRequest struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Priority Priority `json:"priority,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// CreateBatchRequest is the input to CreateBatch.
type CreateBatchRequest struct {
	PatientID    uuid.UUID     `json:"patient_id"`
	QueueEntryID *uuid.UUID    `json:"queue_entry_id,omitempty"`
	Tests        []TestRequest `json:"tests"`
	Priority     Priority      `json:"priority,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	RequestedBy  uuid.UUID     `json:"requested_by"`
}

// Batch pairs a batch id with its members in positional order.
type Batch struct {
	BatchID uuid.UUID `json:"batch_id"`
	Tests   []*Test   `json:"tests"`
}

// CreateBatch orders N related tests under one batch id. The first member is
// the parent; the rest point at it. The whole batch is created atomically.
func (s *Service) CreateBatch(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	if len(req.Tests) == 0 {
		return nil, errs.Validation("a batch needs at least one test")
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}
	if _, err := ParsePriority(string(req.Priority)); err != nil {
		return nil, errs.Validation("%s", err.Error())
	}
	for _, tr := range req.Tests {
		if strings.TrimSpace(tr.Code) == "" {
			return nil, errs.Validation("every test needs a code")
		}
		if tr.Priority != "" {
			if _, err := ParsePriority(string(tr.Priority)); err != nil {
				return nil, errs.Validation("%s", err.Error())
			}
		}
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}

	batchID := uuid.New()
	batch := &Batch{BatchID: batchID}
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		var parentID uuid.UUID
		for i, tr := range req.Tests {
			t := &Test{
				PatientID:    req.PatientID,
				QueueEntryID: req.QueueEntryID,
				BatchID:      &batchID,
				IsParentTest: i == 0,
				BatchSize:    len(req.Tests),
				BatchIndex:   i,
				TestCode:     strings.ToUpper(tr.Code),
				TestName:     tr.Name,
				Priority:     req.Priority,
				Status:       StatusPending,
				RequestedBy:  req.RequestedBy,
				Notes:        req.Notes,
			}
			if tr.Priority != "" {
				t.Priority = tr.Priority
			}
			if tr.Notes != "" {
				t.Notes = tr.Notes
			}
			if i > 0 {
				pid := parentID
				t.ParentTestID = &pid
			}
			s.enrichFromCatalog(ctx, t)
			if err := s.repo.Create(ctx, t); err != nil {
				return errs.TxAbort(err, "create batch member %d", i)
			}
			if i == 0 {
				parentID = t.ID
			}
			batch.Tests = append(batch.Tests, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// enrichFromCatalog attaches price, sample type and turnaround from the test
// catalog when the code resolves. Failures are logged and ignored.
func (s *Service) enrichFromCatalog(ctx context.Context, t *Test) {
	if s.catalog == nil {
		return
	}
	def, err := s.catalog.GetByCode(ctx, t.TestCode)
	if err != nil {
		log.Warn().Err(err).Str("test_code", t.TestCode).
			Msg("lab: catalog lookup failed, ordering without enrichment")
		return
	}
	price := def.Price
	turnaround := def.TurnaroundMinutes
	t.Price = &price
	t.SampleType = def.SampleType
	t.TurnaroundMinutes = &turnaround
	if t.TestName == "" {
		t.TestName = def.Name
	}
}

// GetBatch returns all members of a batch in positional order.
func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	tests, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return nil, errs.NotFound("batch not found")
	}
	return &Batch{BatchID: batchID, Tests: tests}, nil
}

// CollectSampleRequest is the input to CollectSample.
type CollectSampleRequest struct {
	BatchID            uuid.UUID `json:"batch_id"`
	CollectedBy        uuid.UUID `json:"collected_by"`
	Method             string    `json:"method"`
	PatientPreparation string    `json:"patient_preparation,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

// CollectSample stamps one shared specimen identifier onto every PENDING
// member of a batch, all-or-nothing. A batch that was partially collected
// earlier keeps its existing identifier.
func (s *Service) CollectSample(ctx context.Context, req CollectSampleRequest) (string, error) {
	var sampleID string
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		members, err := s.repo.ListByBatch(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return errs.NotFound("batch not found")
		}

		now := time.Now().UTC()
		sampleID = newSharedSampleID(now)
		for _, m := range members {
			if m.SharedSampleID != nil && *m.SharedSampleID != "" {
				sampleID = *m.SharedSampleID
				break
			}
		}

		collected := 0
		for _, m := range members {
			if m.Status != StatusPending {
				continue
			}
			m.Status = StatusSampleCollected
			m.SharedSampleID = &sampleID
			m.SampleCollectedAt = &now
			m.SampleCollectedBy = &req.CollectedBy
			m.CollectionMethod = req.Method
			m.PatientPreparation = req.PatientPreparation
			if req.Notes != "" {
				m.Notes = req.Notes
			}
			if err := s.repo.Update(ctx, m); err != nil {
				return errs.TxAbort(err, "collect sample for test %s", m.ID)
			}
			collected++
		}
		if collected == 0 {
			return errs.Validation("no pending tests")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sampleID, nil
}

// TestResult is one submitted result, matched to a batch member by test id.
type TestResult struct {
	TestID         uuid.UUID              `json:"test_id"`
	Results        map[string]interface{} `json:"results"`
	ReferenceRange string                 `json:"reference_range,omitempty"`
	IsAbnormal     bool                   `json:"is_abnormal"`
	IsCritical     bool                   `json:"is_critical"`
	Notes          string                 `json:"notes,omitempty"`
}

// SubmitResultsRequest is the input to SubmitResults.
type SubmitResultsRequest struct {
	BatchID      uuid.UUID    `json:"batch_id"`
	Results      []TestResult `json:"results"`
	TechnicianID uuid.UUID    `json:"technician_id"`
	Notes        string       `json:"notes,omitempty"`
}

// SubmitResults finalizes the batch members named in the request. Members
// without a submitted result are left untouched for a later call; a result
// for an already-completed member is rejected rather than overwritten.
func (s *Service) SubmitResults(ctx context.Context, req SubmitResultsRequest) (int, error) {
	var patientID uuid.UUID
	completed := 0
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		members, err := s.repo.ListByBatch(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return errs.NotFound("batch not found")
		}
		patientID = members[0].PatientID

		byID := make(map[uuid.UUID]*Test, len(members))
		selectable := 0
		for _, m := range members {
			byID[m.ID] = m
			if m.Status == StatusSampleCollected || m.Status == StatusInProgress {
				selectable++
			}
		}
		if selectable == 0 {
			return errs.Validation("no tests awaiting results")
		}

		now := time.Now().UTC()
		for _, res := range req.Results {
			m, ok := byID[res.TestID]
			if !ok {
				log.Warn().Stringer("batch_id", req.BatchID).Stringer("test_id", res.TestID).
					Msg("lab: submitted result references a test outside the batch")
				continue
			}
			if m.Status == StatusCompleted {
				return errs.Validation("test %s already has results", m.ID)
			}
			if m.Status != StatusSampleCollected && m.Status != StatusInProgress {
				return errs.Validation("test %s has no collected sample", m.ID)
			}

			m.Status = StatusCompleted
			m.Results = res.Results
			m.ReferenceRange = res.ReferenceRange
			m.IsAbnormal = res.IsAbnormal
			m.IsCritical = res.IsCritical
			m.ResultDate = &now
			if req.TechnicianID != uuid.Nil {
				m.ResultEnteredBy = &req.TechnicianID
			}
			if res.Notes != "" {
				m.Notes = res.Notes
			} else if req.Notes != "" {
				m.Notes = req.Notes
			}
			if err := s.repo.Update(ctx, m); err != nil {
				return errs.TxAbort(err, "submit result for test %s", m.ID)
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if completed > 0 && s.notifier != nil {
		if patient, perr := s.patients.Get(ctx, patientID); perr == nil {
			s.notifier.ResultsReady(ctx, patient.Email, patient.FullName, completed)
		}
	}
	return completed, nil
}

// BatchGroup is one batch of a patient's pending work. Unbatched tests are
// grouped under a nil batch id.
type BatchGroup struct {
	BatchID *uuid.UUID `json:"batch_id,omitempty"`
	Tests   []*Test    `json:"tests"`
}

// PatientGroup is one patient's pending lab work.
type PatientGroup struct {
	PatientID   uuid.UUID    `json:"patient_id"`
	PatientName string       `json:"patient_name,omitempty"`
	Batches     []BatchGroup `json:"batches"`
}

// GetGroupedLabQueue returns all pending tests grouped by patient, then by
// batch, for the lab work dashboard. Patients appear in order of their
// oldest pending order.
func (s *Service) GetGroupedLabQueue(ctx context.Context) ([]PatientGroup, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	type batchKey struct {
		patient uuid.UUID
		batch   uuid.UUID
	}
	patientOrder := make([]uuid.UUID, 0)
	seenPatient := make(map[uuid.UUID]bool)
	batchOrder := make(map[uuid.UUID][]uuid.UUID)
	seenBatch := make(map[batchKey]bool)
	grouped := make(map[batchKey][]*Test)

	for _, t := range pending {
		if !seenPatient[t.PatientID] {
			seenPatient[t.PatientID] = true
			patientOrder = append(patientOrder, t.PatientID)
		}
		var bid uuid.UUID
		if t.BatchID != nil {
			bid = *t.BatchID
		}
		key := batchKey{patient: t.PatientID, batch: bid}
		if !seenBatch[key] {
			seenBatch[key] = true
			batchOrder[t.PatientID] = append(batchOrder[t.PatientID], bid)
		}
		grouped[key] = append(grouped[key], t)
	}

	out := make([]PatientGroup, 0, len(patientOrder))
	for _, pid := range patientOrder {
		pg := PatientGroup{PatientID: pid}
		if patient, perr := s.patients.Get(ctx, pid); perr == nil {
			pg.PatientName = patient.FullName
		}
		for _, bid := range batchOrder[pid] {
			key := batchKey{patient: pid, batch: bid}
			tests := grouped[key]
			sort.SliceStable(tests, func(i, j int) bool {
				return tests[i].BatchIndex < tests[j].BatchIndex
			})
			bg := BatchGroup{Tests: tests}
			if bid != uuid.Nil {
				b := bid
				bg.BatchID = &b
			}
			pg.Batches = append(pg.Batches, bg)
		}
		out = append(out, pg)
	}
	return out, nil
}
