package lab

import (
	"context"
	"errors"

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

const testCols = `id, patient_id, queue_entry_id,
	batch_id, is_parent_test, parent_test_id, batch_size, batch_index,
	test_code, test_name, priority, status,
	price, sample_type, turnaround_minutes,
	shared_sample_id, sample_collected_at, sample_collected_by,
	collection_method, patient_preparation,
	results, reference_range, is_abnormal, is_critical, result_date, result_entered_by,
	requested_by, notes, created_at, updated_at`

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.PatientID, &t.QueueEntryID,
		&t.BatchID, &t.IsParentTest, &t.ParentTestID, &t.BatchSize, &t.BatchIndex,
		&t.TestCode, &t.TestName, &t.Priority, &t.Status,
		&t.Price, &t.SampleType, &t.TurnaroundMinutes,
		&t.SharedSampleID, &t.SampleCollectedAt, &t.SampleCollectedBy,
		&t.CollectionMethod, &t.PatientPreparation,
		&t.Results, &t.ReferenceRange, &t.IsAbnormal, &t.IsCritical, &t.ResultDate, &t.ResultEnteredBy,
		&t.RequestedBy, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Test) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_test (
			id, patient_id, queue_entry_id,
			batch_id, is_parent_test, parent_test_id, batch_size, batch_index,
			test_code, test_name, priority, status,
			price, sample_type, turnaround_minutes,
			requested_by, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientID, t.QueueEntryID,
		t.BatchID, t.IsParentTest, t.ParentTestID, t.BatchSize, t.BatchIndex,
		t.TestCode, t.TestName, t.Priority, t.Status,
		t.Price, t.SampleType, t.TurnaroundMinutes,
		t.RequestedBy, t.Notes,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, t *Test) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_test
		SET parent_test_id = $2, status = $3,
			shared_sample_id = $4, sample_collected_at = $5, sample_collected_by = $6,
			collection_method = $7, patient_preparation = $8,
			results = $9, reference_range = $10, is_abnormal = $11, is_critical = $12,
			result_date = $13, result_entered_by = $14, notes = $15, updated_at = now()
		WHERE id = $1`,
		t.ID, t.ParentTestID, t.Status,
		t.SharedSampleID, t.SampleCollectedAt, t.SampleCollectedBy,
		t.CollectionMethod, t.PatientPreparation,
		t.Results, t.ReferenceRange, t.IsAbnormal, t.IsCritical,
		t.ResultDate, t.ResultEnteredBy, t.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("lab test not found")
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Test, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+testCols+` FROM lab_test WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("lab test not found")
	}
	return t, err
}

func (r *repoPG) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*Test, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+testCols+` FROM lab_test
		WHERE batch_id = $1
		ORDER BY batch_index ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTests(rows)
}

func (r *repoPG) ListPending(ctx context.Context) ([]*Test, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+testCols+` FROM lab_test
		WHERE status = 'PENDING'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTests(rows)
}

func collectTests(rows pgx.Rows) ([]*Test, error) {
	var out []*Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
