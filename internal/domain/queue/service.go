package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/directory"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

// Notifier delivers best-effort outbound notices. Implementations log their
// own failures; calls never affect the outcome of the operation that
// triggered them.
type Notifier interface {
	AdmissionNotice(ctx context.Context, recipient, patientName, departmentName string, queueNumber, estimatedWaitMin int)
	TransferNotice(ctx context.Context, recipient, patientName, fromDepartment, toDepartment string)
}

type Service struct {
	repo      Repository
	estimator *Estimator
	patients  directory.PatientDirectory
	depts     directory.DepartmentDirectory
	staff     directory.StaffDirectory
	notifier  Notifier
	pool      *pgxpool.Pool
}

func NewService(
	repo Repository,
	patients directory.PatientDirectory,
	depts directory.DepartmentDirectory,
	staff directory.StaffDirectory,
	notifier Notifier,
	pool *pgxpool.Pool,
) *Service {
	return &Service{
		repo:      repo,
		estimator: NewEstimator(repo),
		patients:  patients,
		depts:     depts,
		staff:     staff,
		notifier:  notifier,
		pool:      pool,
	}
}

// AdmitRequest is the input to Admit.
type AdmitRequest struct {
	PatientID    uuid.UUID `json:"patient_id"`
	DepartmentID uuid.UUID `json:"department_id"`
	Priority     int       `json:"priority"`
	Source       Source    `json:"source"`
	Notes        string    `json:"notes"`
}

// Admit creates a queue entry for a patient in a department. A patient can
// hold at most one non-terminal entry across all departments; a second
// admission fails with a Conflict naming the blocking department.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*Entry, error) {
	if req.Priority < 1 || req.Priority > 5 {
		return nil, errs.Validation("priority must be between 1 and 5")
	}
	if req.Source == "" {
		req.Source = SourceReception
	}
	if !validSources[req.Source] {
		return nil, errs.Validation("unknown queue source: %s", req.Source)
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	dept, err := s.depts.Get(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	var entry *Entry
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		existing, err := s.repo.GetActiveByPatient(ctx, req.PatientID)
		if err != nil && !errs.IsKind(err, errs.KindNotFound) {
			return err
		}
		if existing != nil {
			blocking, derr := s.depts.Get(ctx, existing.DepartmentID)
			name := existing.DepartmentID.String()
			if derr == nil {
				name = blocking.Name
			}
			return errs.Conflict("patient already has an active queue entry").
				WithMeta("department", name)
		}

		number, err := s.repo.NextQueueNumber(ctx, req.DepartmentID)
		if err != nil {
			return err
		}
		estimate, err := s.estimator.EstimateWait(ctx, req.DepartmentID, req.Priority)
		if err != nil {
			return err
		}

		entry = &Entry{
			PatientID:        req.PatientID,
			DepartmentID:     req.DepartmentID,
			QueueNumber:      number,
			Priority:         req.Priority,
			Status:           StatusWaiting,
			Source:           req.Source,
			EstimatedWaitMin: estimate,
		}
		entry.AppendNote(req.Notes)
		if err := s.repo.Create(ctx, entry); err != nil {
			return err
		}

		if err := s.patients.SetCoarseStatus(ctx, req.PatientID, coarseStatusForAdmission(dept.Code)); err != nil {
			return err
		}
		return s.patients.MarkRevisit(ctx, req.PatientID, req.DepartmentID)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.AdmissionNotice(ctx, patient.Email, patient.FullName, dept.Name,
			entry.QueueNumber, entry.EstimatedWaitMin)
	}
	return entry, nil
}

// Transition moves an entry to a new status, stamping start/end times and
// actual wait, and updates the patient's coarse status.
func (s *Service) Transition(ctx context.Context, entryID uuid.UUID, newStatus Status, notes string) (*Entry, error) {
	if _, err := ParseStatus(string(newStatus)); err != nil {
		return nil, errs.Validation("%s", err.Error())
	}

	var entry *Entry
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		var err error
		entry, err = s.repo.Get(ctx, entryID)
		if err != nil {
			return err
		}
		if !CanTransition(entry.Status, newStatus) {
			return errs.Validation("illegal transition %s -> %s", entry.Status, newStatus)
		}

		now := time.Now().UTC()
		entry.Status = newStatus
		entry.AppendNote(notes)
		switch newStatus {
		case StatusInProgress:
			entry.StartTime = &now
		case StatusCompleted, StatusTransferred, StatusCancelled:
			entry.EndTime = &now
			wait := actualWaitMinutes(entry, now)
			entry.ActualWaitMin = &wait
		}
		if err := s.repo.Update(ctx, entry); err != nil {
			return err
		}
		return s.updatePatientStatus(ctx, entry, newStatus)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TransferResult pairs the closed source entry with the newly opened one.
type TransferResult struct {
	Closed *Entry `json:"closed"`
	Opened *Entry `json:"opened"`
}

// Transfer atomically closes an entry as TRANSFERRED and opens a fresh one
// in the destination department. The new entry gets the flat default
// estimate rather than a recomputed one.
func (s *Service) Transfer(ctx context.Context, entryID, newDepartmentID uuid.UUID, reason string) (*TransferResult, error) {
	fromDept := ""
	toDept, err := s.depts.Get(ctx, newDepartmentID)
	if err != nil {
		return nil, err
	}

	var res TransferResult
	var patientID uuid.UUID
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		src, err := s.repo.Get(ctx, entryID)
		if err != nil {
			return err
		}
		if src.Status.IsTerminal() {
			return errs.Validation("cannot transfer a %s entry", src.Status)
		}
		patientID = src.PatientID

		now := time.Now().UTC()
		src.Status = StatusTransferred
		src.EndTime = &now
		wait := actualWaitMinutes(src, now)
		src.ActualWaitMin = &wait
		src.AppendNote("Transferred: " + reason)
		if err := s.repo.Update(ctx, src); err != nil {
			return err
		}
		if d, derr := s.depts.Get(ctx, src.DepartmentID); derr == nil {
			fromDept = d.Name
		}

		number, err := s.repo.NextQueueNumber(ctx, newDepartmentID)
		if err != nil {
			return err
		}
		opened := &Entry{
			PatientID:        src.PatientID,
			DepartmentID:     newDepartmentID,
			QueueNumber:      number,
			Priority:         src.Priority,
			Status:           StatusWaiting,
			Source:           SourceTransfer,
			EstimatedWaitMin: defaultWaitMinutes,
		}
		opened.AppendNote("Transferred from previous department: " + reason)
		if err := s.repo.Create(ctx, opened); err != nil {
			return err
		}

		res.Closed = src
		res.Opened = opened
		return s.patients.SetCoarseStatus(ctx, src.PatientID, directory.StatusTransferred)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if patient, perr := s.patients.Get(ctx, patientID); perr == nil {
			s.notifier.TransferNotice(ctx, patient.Email, patient.FullName, fromDept, toDept.Name)
		}
	}
	return &res, nil
}

// AssignStaff attaches a staff member to an entry. The staff member must
// belong to the entry's department.
func (s *Service) AssignStaff(ctx context.Context, entryID, staffID uuid.UUID) (*Entry, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	st, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if st.DepartmentID != entry.DepartmentID {
		return nil, errs.Validation("staff member does not belong to the entry's department")
	}
	entry.AssignedStaffID = &staffID
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntry returns one queue entry.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// GetPatientQueueHistory returns a page of the patient's admissions, newest
// first, plus the total count.
func (s *Service) GetPatientQueueHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// GetDepartmentQueue returns the department's active entries in serving
// order.
func (s *Service) GetDepartmentQueue(ctx context.Context, departmentID uuid.UUID) ([]*Entry, error) {
	if _, err := s.depts.Get(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveByDepartment(ctx, departmentID)
}

// GetStats returns today's queue summary for a department.
func (s *Service) GetStats(ctx context.Context, departmentID uuid.UUID) (*Stats, error) {
	if _, err := s.depts.Get(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, departmentID)
}

func (s *Service) updatePatientStatus(ctx context.Context, entry *Entry, newStatus Status) error {
	var coarse directory.CoarseStatus
	switch newStatus {
	case StatusInProgress:
		dept, err := s.depts.Get(ctx, entry.DepartmentID)
		if err != nil {
			log.Warn().Err(err).Stringer("department_id", entry.DepartmentID).
				Msg("queue: department lookup failed during transition")
			coarse = directory.StatusInConsultation
		} else {
			coarse = coarseStatusForService(dept.Code)
		}
	case StatusCompleted:
		coarse = directory.StatusConsultationComplete
	case StatusTransferred:
		coarse = directory.StatusTransferred
	case StatusCancelled:
		coarse = directory.StatusWaiting
	default:
		return nil
	}
	return s.patients.SetCoarseStatus(ctx, entry.PatientID, coarse)
}

// coarseStatusForAdmission maps a department code to the patient-facing
// status shown right after joining the queue.
func coarseStatusForAdmission(code string) directory.CoarseStatus {
	switch code {
	case directory.DeptCodeLaboratory:
		return directory.StatusInLaboratory
	case directory.DeptCodePharmacy:
		return directory.StatusInPharmacy
	default:
		return directory.StatusWaiting
	}
}

// coarseStatusForService maps a department code to the status shown while
// the patient is being seen.
func coarseStatusForService(code string) directory.CoarseStatus {
	switch code {
	case directory.DeptCodeLaboratory:
		return directory.StatusInLaboratory
	case directory.DeptCodePharmacy:
		return directory.StatusInPharmacy
	default:
		return directory.StatusInConsultation
	}
}

func actualWaitMinutes(e *Entry, now time.Time) int {
	start := e.CreatedAt
	if e.StartTime != nil {
		start = *e.StartTime
	}
	return int(now.Sub(start).Minutes())
}
