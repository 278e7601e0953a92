package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, patient_id, department_id, queue_number, priority, status, source,
	estimated_wait_minutes, actual_wait_minutes, start_time, end_time,
	assigned_staff_id, notes, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.DepartmentID, &e.QueueNumber, &e.Priority,
		&e.Status, &e.Source, &e.EstimatedWaitMin, &e.ActualWaitMin,
		&e.StartTime, &e.EndTime, &e.AssignedStaffID, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO queue_entry (
			id, patient_id, department_id, queue_number, priority, status, source,
			estimated_wait_minutes, actual_wait_minutes, start_time, end_time,
			assigned_staff_id, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.DepartmentID, e.QueueNumber, e.Priority, e.Status, e.Source,
		e.EstimatedWaitMin, e.ActualWaitMin, e.StartTime, e.EndTime,
		e.AssignedStaffID, e.Notes,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_entry
		SET priority = $2, status = $3, estimated_wait_minutes = $4,
			actual_wait_minutes = $5, start_time = $6, end_time = $7,
			assigned_staff_id = $8, notes = $9, updated_at = now()
		WHERE id = $1`,
		e.ID, e.Priority, e.Status, e.EstimatedWaitMin,
		e.ActualWaitMin, e.StartTime, e.EndTime,
		e.AssignedStaffID, e.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("queue entry not found")
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("queue entry not found")
	}
	return e, err
}

func (r *repoPG) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE patient_id = $1 AND status NOT IN ('COMPLETED','TRANSFERRED','CANCELLED')
		ORDER BY created_at DESC
		LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("no active queue entry")
	}
	return e, err
}

// NextQueueNumber takes a per-(department, day) advisory lock before reading
// the current maximum, so concurrent admissions to the same department cannot
// observe the same number. The lock is transaction-scoped and released at
// commit or rollback.
func (r *repoPG) NextQueueNumber(ctx context.Context, departmentID uuid.UUID) (int, error) {
	c := r.conn(ctx)
	_, err := c.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('queue_number:' || $1::text || ':' || to_char(now(), 'YYYY-MM-DD')))`,
		departmentID)
	if err != nil {
		return 0, err
	}

	var next int
	err = c.QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0) + 1
		FROM queue_entry
		WHERE department_id = $1 AND created_at >= date_trunc('day', now())`,
		departmentID).Scan(&next)
	return next, err
}

func (r *repoPG) RecentServiceDurations(ctx context.Context, departmentID uuid.UUID, limit int) ([]time.Duration, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_time, end_time
		FROM queue_entry
		WHERE department_id = $1
		  AND status IN ('COMPLETED','TRANSFERRED')
		  AND start_time IS NOT NULL AND end_time IS NOT NULL
		ORDER BY end_time DESC
		LIMIT $2`, departmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Duration
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, end.Sub(start))
	}
	return out, rows.Err()
}

func (r *repoPG) CountWaitingToday(ctx context.Context, departmentID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM queue_entry
		WHERE department_id = $1 AND status = 'WAITING'
		  AND created_at >= date_trunc('day', now())`,
		departmentID).Scan(&n)
	return n, err
}

func (r *repoPG) ListActiveByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE department_id = $1 AND status IN ('WAITING','IN_PROGRESS')
		ORDER BY priority ASC, created_at ASC`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM queue_entry WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries, err := collectEntries(rows)
	return entries, total, err
}

func (r *repoPG) Stats(ctx context.Context, departmentID uuid.UUID) (*Stats, error) {
	s := Stats{DepartmentID: departmentID}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'WAITING'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COALESCE(AVG(actual_wait_minutes) FILTER (WHERE actual_wait_minutes IS NOT NULL), 0)::int
		FROM queue_entry
		WHERE department_id = $1 AND created_at >= date_trunc('day', now())`,
		departmentID).Scan(&s.Waiting, &s.InProgress, &s.CompletedToday, &s.AvgWaitMinutes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectEntries(rows pgx.Rows) ([]*Entry, error) {
	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DepartmentID, &e.QueueNumber, &e.Priority,
			&e.Status, &e.Source, &e.EstimatedWaitMin, &e.ActualWaitMin,
			&e.StartTime, &e.EndTime, &e.AssignedStaffID, &e.Notes,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
