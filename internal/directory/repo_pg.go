package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientDirectory(pool *pgxpool.Pool) PatientDirectory {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, full_name, email, coarse_status, is_revisit, last_department_id, created_at, updated_at`

func (r *patientRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *patientRepoPG) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.CoarseStatus, &p.IsRevisit, &p.LastDepartmentID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) SetCoarseStatus(ctx context.Context, id uuid.UUID, status CoarseStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET coarse_status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) MarkRevisit(ctx context.Context, id uuid.UUID, lastDepartmentID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET is_revisit = TRUE, last_department_id = $2, updated_at = now() WHERE id = $1`,
		id, lastDepartmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient not found")
	}
	return nil
}

type departmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewDepartmentDirectory(pool *pgxpool.Pool) DepartmentDirectory {
	return &departmentRepoPG{pool: pool}
}

func (r *departmentRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *departmentRepoPG) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	var d Department
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, code FROM department WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("department not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *departmentRepoPG) GetByCode(ctx context.Context, code string) (*Department, error) {
	var d Department
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, code FROM department WHERE code = $1`, code).
		Scan(&d.ID, &d.Name, &d.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("department not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type staffRepoPG struct {
	pool *pgxpool.Pool
}

func NewStaffDirectory(pool *pgxpool.Pool) StaffDirectory {
	return &staffRepoPG{pool: pool}
}

func (r *staffRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *staffRepoPG) Get(ctx context.Context, id uuid.UUID) (*Staff, error) {
	var s Staff
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, full_name, department_id FROM staff WHERE id = $1`, id).
		Scan(&s.ID, &s.FullName, &s.DepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("staff member not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
